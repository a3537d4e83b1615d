package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response codes carried in every API envelope.
const (
	CodeOK      = 0
	CodeFailure = 1
	CodeWarning = 2
)

// Response is the envelope wrapping every API payload.
type Response struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data any    `json:"data"`
}

// PageData is the rows payload shape for paginated results.
type PageData struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Rows  any `json:"rows"`
}

func respondOK(c *gin.Context, msg string, data any) {
	c.JSON(http.StatusOK, Response{Code: CodeOK, Msg: msg, Data: data})
}

func respondWarning(c *gin.Context, msg string, data any) {
	c.JSON(http.StatusOK, Response{Code: CodeWarning, Msg: msg, Data: data})
}

func respondFailure(c *gin.Context, status int, msg string) {
	c.JSON(status, Response{Code: CodeFailure, Msg: msg, Data: nil})
}
