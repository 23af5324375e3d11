// Package validation validates configuration structs with
// go-playground/validator struct tags and reports failures as AppErrors.
//
//	type Fixtures struct {
//	    Driver string `mapstructure:"driver" validate:"required,oneof=sqlite postgres"`
//	}
//	err := validation.Validate(cfg)
package validation
