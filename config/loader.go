package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/kbukum/ormtest/logger"
)

// FileSystem abstracts file lookups so resolution can be tested.
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
}

// RealFileSystem implements FileSystem on the OS.
type RealFileSystem struct{}

func (RealFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (RealFileSystem) LoadEnv(path string) error {
	return godotenv.Load(path)
}

// Resolver finds config and env files for a named configuration.
type Resolver struct {
	FileSystem FileSystem
}

// ResolvedFiles contains the resolved config and env file paths.
// An empty path means nothing was found.
type ResolvedFiles struct {
	ConfigFile string
	EnvFile    string
}

// ResolveFiles returns explicit paths when given, otherwise the first match
// in the search locations.
func (r *Resolver) ResolveFiles(name string, opts LoaderConfig) ResolvedFiles {
	resolved := ResolvedFiles{
		ConfigFile: opts.ConfigFile,
		EnvFile:    opts.EnvFile,
	}
	if resolved.ConfigFile == "" {
		resolved.ConfigFile = r.first(searchPaths(name+".yml", name+".yaml"))
	}
	if resolved.EnvFile == "" {
		resolved.EnvFile = r.first(searchPaths(".env.test", ".env"))
	}
	return resolved
}

func (r *Resolver) first(candidates []string) string {
	for _, path := range candidates {
		if r.FileSystem.Exists(path) {
			return path
		}
	}
	return ""
}

// searchPaths lists candidates in priority order: each file name is tried
// in every directory before the next file name.
func searchPaths(fileNames ...string) []string {
	dirs := []string{".", "./testdata", "..", "../testdata", "../.."}
	paths := make([]string, 0, len(dirs)*len(fileNames))
	for _, fileName := range fileNames {
		for _, dir := range dirs {
			paths = append(paths, dir+"/"+fileName)
		}
	}
	return paths
}

// LoaderConfig holds dependencies and optional overrides.
type LoaderConfig struct {
	FileSystem FileSystem
	ConfigFile string
	EnvFile    string
	EnvPrefix  string
	Defaults   map[string]interface{}
}

// LoaderOption is a functional option for LoadConfig.
type LoaderOption func(*LoaderConfig)

// WithFileSystem sets a custom filesystem for the loader.
func WithFileSystem(fs FileSystem) LoaderOption {
	return func(lc *LoaderConfig) { lc.FileSystem = fs }
}

// WithConfigFile sets an explicit config file path.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile sets an explicit .env file path.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// WithEnvPrefix restricts env binding to variables starting with prefix_.
// The prefix is stripped before the key is mapped.
func WithEnvPrefix(prefix string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvPrefix = strings.ToUpper(strings.TrimSuffix(prefix, "_")) }
}

// WithDefaults registers default values keyed by dotted config path.
func WithDefaults(defaults map[string]interface{}) LoaderOption {
	return func(lc *LoaderConfig) {
		if lc.Defaults == nil {
			lc.Defaults = make(map[string]interface{}, len(defaults))
		}
		for k, v := range defaults {
			lc.Defaults[k] = v
		}
	}
}

// LoadConfig loads the configuration called name into cfg.
// Precedence, lowest first: defaults, config file, environment (.env
// variables included).
func LoadConfig(name string, cfg interface{}, opts ...LoaderOption) error {
	var lc LoaderConfig
	for _, opt := range opts {
		opt(&lc)
	}
	if lc.FileSystem == nil {
		lc.FileSystem = RealFileSystem{}
	}

	resolver := &Resolver{FileSystem: lc.FileSystem}
	files := resolver.ResolveFiles(name, lc)

	return loadFromResolvedFiles(name, cfg, files, lc)
}

func loadFromResolvedFiles(name string, cfg interface{}, files ResolvedFiles, lc LoaderConfig) error {
	log := logger.WithComponent("config")
	v := viper.New()

	for key, value := range lc.Defaults {
		v.SetDefault(key, value)
	}

	if files.ConfigFile != "" && lc.FileSystem.Exists(files.ConfigFile) {
		v.SetConfigFile(files.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file %s: %w", files.ConfigFile, err)
		}
		log.Debug("config file loaded", map[string]interface{}{"file": files.ConfigFile})
	}

	if files.EnvFile != "" && lc.FileSystem.Exists(files.EnvFile) {
		if err := lc.FileSystem.LoadEnv(files.EnvFile); err != nil {
			log.Warn("failed to load env file", map[string]interface{}{
				"file":  files.EnvFile,
				"error": err.Error(),
			})
		}
	}

	bindEnvVars(v, lc.EnvPrefix)

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config %s: %w", name, err)
	}
	return nil
}

// bindEnvVars maps environment variables onto every nested key shape
// they could denote.
func bindEnvVars(v *viper.Viper, prefix string) {
	for _, env := range os.Environ() {
		key, value, ok := strings.Cut(env, "=")
		if !ok {
			continue
		}
		if prefix != "" {
			stripped, found := strings.CutPrefix(key, prefix+"_")
			if !found || stripped == "" {
				continue
			}
			key = stripped
		}
		for _, variant := range envKeyVariants(key) {
			v.Set(variant, value)
		}
	}
}

// envKeyVariants splits an env key at every underscore boundary:
//
//	DATABASE_MAX_OPEN_CONNS -> [database_max_open_conns, database.max_open_conns,
//	                            database_max.open_conns, database.max.open_conns, ...]
//
// Only the variant matching a real key survives Unmarshal.
func envKeyVariants(envKey string) []string {
	lowerKey := strings.ToLower(envKey)
	parts := strings.Split(lowerKey, "_")
	if len(parts) <= 1 {
		return []string{lowerKey}
	}

	variants := []string{lowerKey, strings.Join(parts, ".")}
	for i := 1; i < len(parts); i++ {
		variants = append(variants, strings.Join(parts[:i], ".")+"."+strings.Join(parts[i:], "_"))
		variants = append(variants, strings.Join(parts[:i], "_")+"."+strings.Join(parts[i:], "_"))
	}
	return dedupe(variants)
}

func dedupe(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	result := make([]string, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		result = append(result, item)
	}
	return result
}
