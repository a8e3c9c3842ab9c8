package admin

import (
	handlershared "github.com/equipment-registry/internal/http/handlers/shared"
	"github.com/equipment-registry/internal/http/response"
	"github.com/equipment-registry/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type mappedHandlerError = handlershared.MappedError

func requestLog(c *gin.Context) *zap.SugaredLogger {
	return handlershared.RequestLog(c)
}

func respondError(c *gin.Context, code int, key string, err error) {
	handlershared.RespondError(c, code, key, err)
}

var equipmentQueryErrorRules = []mappedHandlerError{
	{Target: service.ErrEquipmentNotFound, Code: response.CodeNotFound, Key: "error.equipment_not_found"},
	{Target: service.ErrBulkCodesRequired, Code: response.CodeBadRequest, Key: "error.bulk_codes_required"},
	{Target: service.ErrBulkCodesTooMany, Code: response.CodeBadRequest, Key: "error.bulk_codes_too_many"},
	{Target: service.ErrDateInvalid, Code: response.CodeBadRequest, Key: "error.date_invalid"},
	{Target: service.ErrValidation, Code: response.CodeBadRequest, Key: "error.bad_request"},
}

func respondQueryError(c *gin.Context, err error, fallbackKey string) {
	handlershared.RespondMappedError(c, err, equipmentQueryErrorRules, response.CodeInternal, fallbackKey)
}
