// Package validation checks inbound editor API requests against the OpenAPI
// document before they reach a handler.
package validation

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"
	"github.com/gin-gonic/gin"
)

// New builds a Gin middleware validating requests against spec. Requests for
// routes the document does not describe pass through untouched, and so do
// methods it does not list for a known path; Gin answers those itself.
func New(spec []byte, log *slog.Logger) (gin.HandlerFunc, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(spec)
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}
	if err := doc.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("invalid openapi document: %w", err)
	}

	router, err := gorillamux.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("build openapi router: %w", err)
	}

	opts := &openapi3filter.Options{
		AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
	}

	return func(c *gin.Context) {
		route, pathParams, err := router.FindRoute(c.Request)
		if err != nil {
			if !errors.Is(err, routers.ErrPathNotFound) && !errors.Is(err, routers.ErrMethodNotAllowed) {
				log.Debug("openapi route lookup failed", "path", c.Request.URL.Path, "error", err)
			}
			c.Next()
			return
		}

		input := &openapi3filter.RequestValidationInput{
			Request:    c.Request,
			PathParams: pathParams,
			Route:      route,
			Options:    opts,
		}
		if err := openapi3filter.ValidateRequest(c.Request.Context(), input); err != nil {
			log.Debug("request rejected", "method", c.Request.Method, "path", c.Request.URL.Path, "error", err)
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": message(err)})
			return
		}
		c.Next()
	}, nil
}

// message trims kin-openapi's error down to what a client can act on.
func message(err error) string {
	var reqErr *openapi3filter.RequestError
	if !errors.As(err, &reqErr) {
		return err.Error()
	}
	var schemaErr *openapi3.SchemaError
	if errors.As(reqErr.Err, &schemaErr) {
		field := "body"
		if ptr := schemaErr.JSONPointer(); len(ptr) > 0 {
			field = ptr[len(ptr)-1]
		}
		if reqErr.Parameter != nil {
			field = reqErr.Parameter.Name
		}
		return fmt.Sprintf("invalid %s: %s", field, schemaErr.Reason)
	}
	return reqErr.Error()
}
