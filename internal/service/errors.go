package service

import (
	"errors"
	"fmt"
)

// 错误类别，具体错误通过 %w 归属到其中之一
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrUpstream   = errors.New("upstream failure")
)

var (
	ErrQRDataEmpty             = fmt.Errorf("%w: qr data is empty", ErrValidation)
	ErrQRFormatInvalid         = fmt.Errorf("%w: invalid qr code format", ErrValidation)
	ErrQRRequiredField         = fmt.Errorf("%w: product code and unit number are required", ErrValidation)
	ErrRequiredMissing         = fmt.Errorf("%w: required fields missing", ErrValidation)
	ErrEquipmentIDInvalid      = fmt.Errorf("%w: invalid equipment id", ErrValidation)
	ErrInstallationDateInvalid = fmt.Errorf("%w: invalid installation date", ErrValidation)
	ErrDealerRequired          = fmt.Errorf("%w: dealer code is required", ErrValidation)
	ErrBulkCodesRequired       = fmt.Errorf("%w: product codes are required", ErrValidation)
	ErrBulkCodesTooMany        = fmt.Errorf("%w: too many product codes", ErrValidation)
	ErrIssueFieldsRequired     = fmt.Errorf("%w: model and unit number are required", ErrValidation)
	ErrDateInvalid             = fmt.Errorf("%w: invalid date", ErrValidation)

	ErrEquipmentNotFound = fmt.Errorf("%w: equipment", ErrNotFound)

	ErrAlreadyRegistered = fmt.Errorf("%w: installation already registered", ErrConflict)
)

// upstreamError 包装存储、令牌生成、外部系统等失败
func upstreamError(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrUpstream, op, err)
}
