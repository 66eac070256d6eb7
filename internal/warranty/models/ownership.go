package models

import (
	"warranty/pkg/domain"
	dErrors "warranty/pkg/domain-errors"
)

const (
	MsgCallerNotOwner      = "caller is not token owner"
	MsgIncorrectOwner      = "transfer from incorrect owner"
	MsgTransferToZero      = "transfer to the zero address"
	MsgTransferToInvalid   = "transfer destination is invalid"
	MsgTransferFromInvalid = "transfer source is invalid"
)

// CheckTransfer applies the holder rules of a transfer once the current holder
// is known: from must be the holder, and to must be a real identity.
func CheckTransfer(holder, from, to domain.Address) error {
	if !holder.Equal(from) {
		return dErrors.New(dErrors.CodeForbidden, MsgIncorrectOwner)
	}
	if to.IsZero() {
		return dErrors.New(dErrors.CodeValidation, MsgTransferToZero)
	}
	if !to.IsValid() {
		return dErrors.New(dErrors.CodeValidation, MsgTransferToInvalid)
	}
	return nil
}

// CheckCaller rejects a transfer requested by anyone other than the holder.
func CheckCaller(holder, caller domain.Address) error {
	if caller.IsZero() || !holder.Equal(caller) {
		return dErrors.New(dErrors.CodeForbidden, MsgCallerNotOwner)
	}
	return nil
}
