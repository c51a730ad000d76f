package utils

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID prefixes for ledger records.
const (
	AccountPrefix       = "acc"
	CustomerPrefix      = "cus"
	ReplenishmentPrefix = "rpl"
	TransferPrefix      = "trf"
)

// GenerateID generates a unique ID with the given prefix. The suffix is a
// UUIDv7, so IDs generated later sort after earlier ones.
func GenerateID(prefix string) string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return fmt.Sprintf("%s-%s", prefix, id.String())
}

// ValidateID checks that id carries prefix followed by a well-formed UUID.
func ValidateID(prefix, id string) bool {
	rest, ok := strings.CutPrefix(id, prefix+"-")
	if !ok {
		return false
	}
	_, err := uuid.Parse(rest)
	return err == nil
}

// ValidateAccountID validates the account ID format
func ValidateAccountID(id string) bool {
	return ValidateID(AccountPrefix, id)
}

// ValidateReplenishmentID validates the replenishment ID format
func ValidateReplenishmentID(id string) bool {
	return ValidateID(ReplenishmentPrefix, id)
}

// ValidateTransferID validates the transfer ID format
func ValidateTransferID(id string) bool {
	return ValidateID(TransferPrefix, id)
}
