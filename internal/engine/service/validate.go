// Copyright 2025 Arcentra Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package service

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/arcentrix/launchpad/internal/pkg/orchestrator/errs"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// getValidator 获取全局验证器实例, field names are reported by their json tag.
func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// validateStruct returns the first violated rule of data as an errs.ValidationError.
func validateStruct(data any) error {
	err := getValidator().Struct(data)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return errs.Validation("", "%v", err)
	}
	fe := fieldErrs[0]
	switch fe.Tag() {
	case "required":
		return errs.Validation(fe.Field(), "is required")
	case "oneof":
		return errs.Validation(fe.Field(), "must be one of %s", fe.Param())
	case "min":
		return errs.Validation(fe.Field(), "must have at least %s", fe.Param())
	default:
		return errs.Validation(fe.Field(), "failed %q rule", fe.Tag())
	}
}
