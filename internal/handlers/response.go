package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"asset-ledger/internal/apperrors"
	"asset-ledger/internal/middleware"
	"asset-ledger/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// newValidator reporta los campos con su nombre JSON
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// bindAndValidate decodifica el body y aplica las reglas validate del DTO.
// Si falla ya escribió la respuesta 400.
func bindAndValidate(c *gin.Context, v *validator.Validate, logger *zap.Logger, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		logger.Warn("⚠️ Error binding JSON", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "❌ Error en el formato de datos",
			"error":   err.Error(),
		})
		return false
	}

	if err := v.Struct(dst); err != nil {
		verr := toValidationError(err)
		logger.Warn("⚠️ Datos de entrada inválidos", zap.Error(verr))
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "❌ Datos de entrada inválidos",
			"error":   verr.Error(),
			"errors":  verr.Fields,
		})
		return false
	}
	return true
}

// toValidationError convierte los errores del validador en la lista de campos del dominio
func toValidationError(err error) *apperrors.ValidationError {
	out := &apperrors.ValidationError{}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		out.Add("body", err.Error())
		return out
	}

	for _, fe := range fieldErrs {
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			out.Add(field, field+" is required")
		case "gt":
			out.Add(field, field+" must be a positive integer")
		case "gte":
			out.Add(field, fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param()))
		case "oneof":
			out.Add(field, fmt.Sprintf("%s must be one of: %s", field, fe.Param()))
		case "min":
			out.Add(field, field+" cannot be empty")
		default:
			out.Add(field, fmt.Sprintf("%s failed %s validation", field, fe.Tag()))
		}
	}
	return out
}

// respondError escribe el sobre de error con el código que corresponde al error del dominio
func respondError(c *gin.Context, logger *zap.Logger, message string, err error) {
	status := apperrors.HTTPStatus(err)

	fields := []zap.Field{zap.Int("status", status), zap.Error(err)}
	if status >= http.StatusInternalServerError {
		logger.Error("❌ "+message, fields...)
	} else {
		logger.Warn("⚠️ "+message, fields...)
	}

	body := gin.H{
		"success": false,
		"message": "❌ " + message,
		"error":   err.Error(),
	}
	if list := apperrors.Fields(err); len(list) > 0 {
		body["errors"] = list
	}
	var insufficient *apperrors.InsufficientStockError
	if errors.As(err, &insufficient) {
		body["available"] = insufficient.Available
		body["requested"] = insufficient.Requested
	}
	c.JSON(status, body)
}

func respondSuccess(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"message": "✅ " + message,
		"data":    data,
	})
}

// requireActor obtiene el actor autenticado; sin él responde 401
func requireActor(c *gin.Context) (models.Actor, bool) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"message": "❌ Usuario no autenticado",
			"error":   "missing actor",
		})
		return models.Actor{}, false
	}
	return actor, true
}

// requestLogger agrega handler y request id al logger
func requestLogger(base *zap.Logger, c *gin.Context, handler string) *zap.Logger {
	return base.With(
		zap.String("handler", handler),
		zap.String("request_id", c.GetString("request_id")),
	)
}
