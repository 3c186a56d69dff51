// Package errors defines the error taxonomy shared by the flashswap program,
// the host runtime and the CLI.
//
// Every failure surfaced by an instruction is a *ProgramError carrying a stable
// code. Errors compare by code, so a wrapped or detailed error still matches
// the predefined sentinel it was built from.
package errors

import (
	"errors"
	"fmt"
)

// Error codes raised by the host runtime and the builtin token program.
const (
	ErrCodeInvalidArgument           = "INVALID_ARGUMENT"
	ErrCodeInvalidInstructionData    = "INVALID_INSTRUCTION_DATA"
	ErrCodeInvalidAccountData        = "INVALID_ACCOUNT_DATA"
	ErrCodeNotEnoughAccountKeys      = "NOT_ENOUGH_ACCOUNT_KEYS"
	ErrCodeMissingRequiredSignature  = "MISSING_REQUIRED_SIGNATURE"
	ErrCodeInvalidAccountOwner       = "INVALID_ACCOUNT_OWNER"
	ErrCodeIncorrectProgramID        = "INCORRECT_PROGRAM_ID"
	ErrCodeInvalidSeeds              = "INVALID_SEEDS"
	ErrCodeAccountAlreadyInitialized = "ACCOUNT_ALREADY_INITIALIZED"
	ErrCodeUninitializedAccount      = "UNINITIALIZED_ACCOUNT"
	ErrCodeAccountBorrowFailed       = "ACCOUNT_BORROW_FAILED"
	ErrCodeReadonlyDataModified      = "READONLY_DATA_MODIFIED"
	ErrCodeExternalDataModified      = "EXTERNAL_ACCOUNT_DATA_MODIFIED"
	ErrCodePrivilegeEscalation       = "PRIVILEGE_ESCALATION"
	ErrCodeCallDepth                 = "CALL_DEPTH"
	ErrCodeUnsupportedProgram        = "UNSUPPORTED_PROGRAM"
	ErrCodeMissingAccount            = "MISSING_ACCOUNT"
	ErrCodeInsufficientFunds         = "INSUFFICIENT_FUNDS"
	ErrCodeArithmeticOverflow        = "ARITHMETIC_OVERFLOW"
	ErrCodeOwnerMismatch             = "OWNER_MISMATCH"
	ErrCodeMintMismatch              = "MINT_MISMATCH"
	ErrCodeContextCanceled           = "CONTEXT_CANCELED"
)

// Error codes raised by the flashswap program itself.
const (
	ErrCodePoolLocked              = "POOL_LOCKED"
	ErrCodeImmutableConfig         = "IMMUTABLE_CONFIG"
	ErrCodeInvalidAuthority        = "INVALID_AUTHORITY"
	ErrCodeInvalidFee              = "INVALID_FEE"
	ErrCodeIdenticalMints          = "IDENTICAL_MINTS"
	ErrCodeInvalidMint             = "INVALID_MINT"
	ErrCodeZeroAmount              = "ZERO_AMOUNT"
	ErrCodeSlippageExceeded        = "SLIPPAGE_EXCEEDED"
	ErrCodeExpired                 = "EXPIRED"
	ErrCodeInsufficientLiquidity   = "INSUFFICIENT_LIQUIDITY"
	ErrCodeInvalidLoanPairs        = "INVALID_LOAN_PAIRS"
	ErrCodeDuplicateProtocol       = "DUPLICATE_PROTOCOL_ACCOUNT"
	ErrCodeMissingRepayInstruction = "MISSING_REPAY_INSTRUCTION"
	ErrCodeMissingLoanInstruction  = "MISSING_LOAN_INSTRUCTION"
	ErrCodeInvalidInstructionIndex = "INVALID_INSTRUCTION_INDEX"
	ErrCodeCustom                  = "CUSTOM"
)

// customBase is the first number handed out to program-specific codes.
const customBase = 6000

var numbers = map[string]uint32{
	ErrCodeInvalidArgument:           1,
	ErrCodeInvalidInstructionData:    2,
	ErrCodeInvalidAccountData:        3,
	ErrCodeInsufficientFunds:         5,
	ErrCodeUninitializedAccount:      8,
	ErrCodeNotEnoughAccountKeys:      9,
	ErrCodeAccountBorrowFailed:       10,
	ErrCodeMissingRequiredSignature:  11,
	ErrCodeAccountAlreadyInitialized: 12,
	ErrCodeInvalidSeeds:              14,
	ErrCodeIncorrectProgramID:        15,
	ErrCodeInvalidAccountOwner:       16,
	ErrCodeArithmeticOverflow:        17,
	ErrCodeReadonlyDataModified:      18,
	ErrCodeExternalDataModified:      19,
	ErrCodePrivilegeEscalation:       20,
	ErrCodeCallDepth:                 21,
	ErrCodeUnsupportedProgram:        22,
	ErrCodeMissingAccount:            23,
	ErrCodeOwnerMismatch:             24,
	ErrCodeMintMismatch:              25,
	ErrCodeContextCanceled:           26,

	ErrCodePoolLocked:              customBase,
	ErrCodeImmutableConfig:         customBase + 1,
	ErrCodeInvalidAuthority:        customBase + 2,
	ErrCodeInvalidFee:              customBase + 3,
	ErrCodeIdenticalMints:          customBase + 4,
	ErrCodeInvalidMint:             customBase + 5,
	ErrCodeZeroAmount:              customBase + 6,
	ErrCodeSlippageExceeded:        customBase + 7,
	ErrCodeExpired:                 customBase + 8,
	ErrCodeInsufficientLiquidity:   customBase + 9,
	ErrCodeInvalidLoanPairs:        customBase + 10,
	ErrCodeDuplicateProtocol:       customBase + 11,
	ErrCodeMissingRepayInstruction: customBase + 12,
	ErrCodeMissingLoanInstruction:  customBase + 13,
	ErrCodeInvalidInstructionIndex: customBase + 14,
}

// ProgramError represents a failed instruction.
type ProgramError struct {
	// Code is a unique error code for this error type.
	Code string

	// Message is a human-readable error message.
	Message string

	// Cause is the underlying error, if any.
	Cause error

	// Details contains additional error context.
	Details map[string]any
}

// Error implements the error interface.
func (e *ProgramError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *ProgramError) Unwrap() error {
	return e.Cause
}

// Is reports whether the error matches the target.
func (e *ProgramError) Is(target error) bool {
	t, ok := target.(*ProgramError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Number returns the numeric code reported in transaction receipts.
// Unknown codes map to zero.
func (e *ProgramError) Number() uint32 {
	return numbers[e.Code]
}

// WithCause returns a copy of the error with the given cause.
func (e *ProgramError) WithCause(cause error) *ProgramError {
	out := *e
	out.Cause = cause
	return &out
}

// WithDetails returns a copy of the error carrying the given details.
func (e *ProgramError) WithDetails(details map[string]any) *ProgramError {
	out := *e
	out.Details = details
	return &out
}

// Withf returns a copy of the error with a more specific message.
func (e *ProgramError) Withf(format string, args ...any) *ProgramError {
	out := *e
	out.Message = fmt.Sprintf(format, args...)
	return &out
}

// NewError creates a new ProgramError.
func NewError(code, message string) *ProgramError {
	return &ProgramError{
		Code:    code,
		Message: message,
	}
}

// Host-level errors.
var (
	ErrInvalidArgument           = NewError(ErrCodeInvalidArgument, "invalid argument")
	ErrInvalidInstructionData    = NewError(ErrCodeInvalidInstructionData, "invalid instruction data")
	ErrInvalidAccountData        = NewError(ErrCodeInvalidAccountData, "invalid account data")
	ErrNotEnoughAccountKeys      = NewError(ErrCodeNotEnoughAccountKeys, "not enough account keys")
	ErrMissingRequiredSignature  = NewError(ErrCodeMissingRequiredSignature, "missing required signature")
	ErrInvalidAccountOwner       = NewError(ErrCodeInvalidAccountOwner, "invalid account owner")
	ErrIncorrectProgramID        = NewError(ErrCodeIncorrectProgramID, "incorrect program id")
	ErrInvalidSeeds              = NewError(ErrCodeInvalidSeeds, "provided address does not match derived address")
	ErrAccountAlreadyInitialized = NewError(ErrCodeAccountAlreadyInitialized, "account already initialized")
	ErrUninitializedAccount      = NewError(ErrCodeUninitializedAccount, "account not initialized")
	ErrAccountBorrowFailed       = NewError(ErrCodeAccountBorrowFailed, "account data already borrowed")
	ErrReadonlyDataModified      = NewError(ErrCodeReadonlyDataModified, "write to read-only account")
	ErrExternalDataModified      = NewError(ErrCodeExternalDataModified, "write to account owned by another program")
	ErrPrivilegeEscalation       = NewError(ErrCodePrivilegeEscalation, "cross-program invocation escalates privileges")
	ErrCallDepth                 = NewError(ErrCodeCallDepth, "cross-program invocation too deep")
	ErrUnsupportedProgram        = NewError(ErrCodeUnsupportedProgram, "program not registered")
	ErrMissingAccount            = NewError(ErrCodeMissingAccount, "account not passed to caller")
	ErrInsufficientFunds         = NewError(ErrCodeInsufficientFunds, "insufficient funds")
	ErrArithmeticOverflow        = NewError(ErrCodeArithmeticOverflow, "arithmetic overflow")
	ErrOwnerMismatch             = NewError(ErrCodeOwnerMismatch, "token account owner mismatch")
	ErrMintMismatch              = NewError(ErrCodeMintMismatch, "token mint mismatch")
	ErrContextCanceled           = NewError(ErrCodeContextCanceled, "context canceled")
)

// Program-level errors.
var (
	ErrPoolLocked              = NewError(ErrCodePoolLocked, "pool is locked")
	ErrImmutableConfig         = NewError(ErrCodeImmutableConfig, "pool config is immutable")
	ErrInvalidAuthority        = NewError(ErrCodeInvalidAuthority, "caller is not the pool authority")
	ErrInvalidFee              = NewError(ErrCodeInvalidFee, "fee must be below 10000 basis points")
	ErrIdenticalMints          = NewError(ErrCodeIdenticalMints, "pool mints must be distinct")
	ErrInvalidMint             = NewError(ErrCodeInvalidMint, "mint does not belong to pool")
	ErrZeroAmount              = NewError(ErrCodeZeroAmount, "amount resolves to zero")
	ErrSlippageExceeded        = NewError(ErrCodeSlippageExceeded, "slippage bound exceeded")
	ErrExpired                 = NewError(ErrCodeExpired, "offer expired")
	ErrInsufficientLiquidity   = NewError(ErrCodeInsufficientLiquidity, "insufficient liquidity")
	ErrInvalidLoanPairs        = NewError(ErrCodeInvalidLoanPairs, "invalid loan account pairs")
	ErrDuplicateProtocol       = NewError(ErrCodeDuplicateProtocol, "protocol account listed twice")
	ErrMissingRepayInstruction = NewError(ErrCodeMissingRepayInstruction, "no matching repay instruction")
	ErrMissingLoanInstruction  = NewError(ErrCodeMissingLoanInstruction, "no matching loan instruction")
	ErrInvalidInstructionIndex = NewError(ErrCodeInvalidInstructionIndex, "instruction index out of range")
)

// Custom creates a custom error with the given message.
func Custom(message string) *ProgramError {
	return NewError(ErrCodeCustom, message)
}

// DecodeFailed creates an instruction data error for a payload that could not be read.
func DecodeFailed(what string, cause error) *ProgramError {
	return ErrInvalidInstructionData.Withf("failed to decode %s", what).WithCause(cause)
}

// CodeOf returns the code of the first ProgramError in err's chain.
func CodeOf(err error) string {
	var pe *ProgramError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}

// NumberOf returns the receipt number of the first ProgramError in err's chain.
func NumberOf(err error) uint32 {
	var pe *ProgramError
	if errors.As(err, &pe) {
		return pe.Number()
	}
	return 0
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Join returns an error that wraps the given errors.
func Join(errs ...error) error {
	return errors.Join(errs...)
}
