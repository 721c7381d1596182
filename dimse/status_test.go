package dimse_test

import (
	"testing"

	"github.com/dcmweld/netdicom/dimse"
	"github.com/stretchr/testify/assert"
)

func TestStatusCategory(t *testing.T) {
	tests := []struct {
		code dimse.StatusCode
		want dimse.StatusCategory
	}{
		{0x0000, dimse.StatusSuccessCategory},
		{0xfe00, dimse.StatusCancelCategory},
		{0xff00, dimse.StatusPendingCategory},
		{0xff01, dimse.StatusPendingCategory},
		{0x0001, dimse.StatusWarningCategory},
		{0x0107, dimse.StatusWarningCategory},
		{0x0116, dimse.StatusWarningCategory},
		{0xb000, dimse.StatusWarningCategory},
		{0xbfff, dimse.StatusWarningCategory},
		{0x0105, dimse.StatusFailureCategory},
		{0x0124, dimse.StatusFailureCategory},
		{0x0210, dimse.StatusFailureCategory},
		{0x0213, dimse.StatusFailureCategory},
		{0xa700, dimse.StatusFailureCategory},
		{0xa900, dimse.StatusFailureCategory},
		{0xc000, dimse.StatusFailureCategory},
		{0xcfff, dimse.StatusFailureCategory},
		{0x0002, dimse.StatusUnknownCategory},
		{0xd000, dimse.StatusUnknownCategory},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, dimse.Category(tc.code), "status 0x%04x", tc.code)
	}
}

func TestStatusPredicates(t *testing.T) {
	assert.True(t, dimse.StatusSuccess.Success())
	assert.False(t, dimse.StatusSuccess.IsPending())
	pending := dimse.Status{Status: dimse.StatusPending}
	assert.True(t, pending.IsPending())
	assert.False(t, pending.Success())
	cancel := dimse.Status{Status: dimse.StatusCancel}
	assert.False(t, cancel.IsPending())
	assert.False(t, cancel.Success())
}
