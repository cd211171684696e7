package fakeapi

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerFieldNames sync.Once

// useJSONFieldNames makes validation errors report the json name of a field,
// which is the key the backend uses in its error bodies.
func useJSONFieldNames() {
	registerFieldNames.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
}

// fieldErrors converts binding tag failures into a {field: [message]} body.
// It reports false for errors that are not validation failures, such as
// malformed JSON.
func fieldErrors(err error) (gin.H, bool) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, false
	}
	out := gin.H{}
	for _, fe := range verrs {
		out[fe.Field()] = []string{fieldMessage(fe)}
	}
	return out, true
}

func fieldMessage(fe validator.FieldError) string {
	switch {
	case fe.Field() == "quantity":
		return "Quantity must be positive"
	case fe.Field() == "password" && fe.Tag() == "min":
		return fmt.Sprintf("This password is too short. It must contain at least %s characters.", fe.Param())
	}

	switch fe.Tag() {
	case "required":
		if fe.Kind() == reflect.String {
			return "This field may not be blank."
		}
		return "This field is required."
	case "gt":
		return fmt.Sprintf("Ensure this value is greater than %s.", fe.Param())
	case "min":
		return fmt.Sprintf("Ensure this field has at least %s characters.", fe.Param())
	default:
		return "Invalid value."
	}
}

// bindJSON binds the request body into req. On failure it writes the 400
// response and reports false.
func bindJSON(c *gin.Context, req any) bool {
	err := c.ShouldBindJSON(req)
	if err == nil {
		return true
	}
	if body, ok := fieldErrors(err); ok {
		c.JSON(http.StatusBadRequest, body)
		return false
	}
	c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid request body: " + err.Error()})
	return false
}
