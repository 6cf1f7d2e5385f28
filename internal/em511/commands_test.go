package em511

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResetCommands(t *testing.T) {
	tests := []struct {
		name    string
		run     func(*Session) error
		address uint16
	}{
		{"reset-totals", (*Session).ResetTotals, 0x4003},
		{"reset-partial", (*Session).ResetPartial, 0x4004},
		{"reset-demand", (*Session).ResetDemand, 0x4005},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ft := &fakeTransport{}
			require.NoError(t, tt.run(newTestSession(t, ft)))
			assert.Equal(t, []writeCall{{unit: 1, address: tt.address, value: 1}}, ft.writes)
			assert.Empty(t, ft.reads)

			ft = &fakeTransport{}
			require.NoError(t, newTestSession(t, ft).Run(tt.name))
			assert.Equal(t, []writeCall{{unit: 1, address: tt.address, value: 1}}, ft.writes)
		})
	}
}

func TestResetCommandTransportError(t *testing.T) {
	ioErr := errors.New("no response")
	ft := &fakeTransport{writeErrs: []error{ioErr}}
	err := newTestSession(t, ft).ResetDemand()
	assert.ErrorIs(t, err, ErrTransport)
	assert.ErrorIs(t, err, ioErr)

	var rerr *RegisterError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "reset_demand", rerr.Register)
	assert.Equal(t, uint16(0x4005), rerr.Address)
}

func TestFactoryRestore(t *testing.T) {
	want := []writeCall{
		{unit: 1, address: 0x4020, value: 0x0A0A},
		{unit: 1, address: 0x4020, value: 0xC1A0},
	}
	errArm := errors.New("arm failed")
	errConfirm := errors.New("confirm failed")

	tests := []struct {
		name      string
		writeErrs []error
		wantErrs  []error
	}{
		{"success", nil, nil},
		{"first write fails", []error{errArm, nil}, []error{errArm}},
		{"second write fails", []error{nil, errConfirm}, []error{errConfirm}},
		{"both fail", []error{errArm, errConfirm}, []error{errArm, errConfirm}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ft := &fakeTransport{writeErrs: tt.writeErrs}
			err := newTestSession(t, ft).FactoryRestore()
			assert.Equal(t, want, ft.writes)
			if tt.wantErrs == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrTransport)
			for _, e := range tt.wantErrs {
				assert.ErrorIs(t, err, e)
			}
		})
	}
}

func TestRunUnknownCommand(t *testing.T) {
	ft := &fakeTransport{}
	assert.Error(t, newTestSession(t, ft).Run("reboot"))
	assert.Empty(t, ft.writes)
	assert.Equal(t, []string{"factory-restore", "reset-demand", "reset-partial", "reset-totals"}, CommandNames())
}
