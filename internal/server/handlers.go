package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/relayhq/relay/internal/script/engine"
	"github.com/relayhq/relay/internal/script/marshal"
	"github.com/relayhq/relay/internal/script/state"
)

// RunRequest is the POST /run payload
type RunRequest struct {
	Source      string             `json:"source" binding:"required"`
	Phase       string             `json:"phase"`
	Request     *RequestPayload    `json:"request,omitempty"`
	Response    *ResponsePayload   `json:"response,omitempty"`
	Environment *state.Environment `json:"environment,omitempty"`
	Cookies     []state.Cookie     `json:"cookies,omitempty"`
}

// RequestPayload describes the request under edit
type RequestPayload struct {
	Method  string         `json:"method"`
	URL     string         `json:"url"`
	Headers []state.Header `json:"headers"`
	Body    string         `json:"body"`
}

// ResponsePayload describes the response under test
type ResponsePayload struct {
	Status  int            `json:"status"`
	Headers []state.Header `json:"headers"`
	Body    string         `json:"body"`
}

func (s *Server) runScript(c *gin.Context) {
	var req RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	inv := engine.Invocation{
		Source:      req.Source,
		Phase:       req.Phase,
		Environment: req.Environment,
		Cookies:     req.Cookies,
		Executor:    s.executor.Do,
	}
	if req.Request != nil {
		desc := &marshal.RequestDescriptor{
			Method:  req.Request.Method,
			URL:     req.Request.URL,
			Headers: req.Request.Headers,
		}
		if req.Request.Body != "" {
			desc.Body = marshal.BodyPayload{
				Kind:      marshal.BodyText,
				Content:   []byte(req.Request.Body),
				MediaType: "text/plain",
			}
		}
		inv.Request = desc
	}
	if req.Response != nil {
		inv.Response = &marshal.RawResponse{
			StatusCode: req.Response.Status,
			Headers:    req.Response.Headers,
			Body:       io.NopCloser(strings.NewReader(req.Response.Body)),
		}
	}

	result, err := s.engine.Run(c.Request.Context(), inv)
	if err != nil {
		var failure *state.ScriptFailure
		if errors.As(err, &failure) {
			c.JSON(http.StatusUnprocessableEntity, failure)
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}
