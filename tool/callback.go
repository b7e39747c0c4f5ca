package tool

import (
	"github.com/gin-gonic/gin"
)

func FastReturnError(msg string) gin.H {
	return gin.H{
		"error": msg,
	}
}

// FastReturnErrorWithCode adds a machine readable code, e.g. a remote failure code.
func FastReturnErrorWithCode(msg, code string) gin.H {
	return gin.H{
		"error": msg,
		"code":  code,
	}
}

func FastReturnSuccess() gin.H {
	return gin.H{
		"status": "ok",
	}
}

func FastReturnSuccessWithData(data any) gin.H {
	return gin.H{
		"data": data,
	}
}
