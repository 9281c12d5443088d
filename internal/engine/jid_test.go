package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mau.fi/whatsmeow/types"
)

func TestDecomposeJID(t *testing.T) {
	assert.Equal(t, "628123456789", DecomposeJID("628123456789@s.whatsapp.net"))
	assert.Equal(t, "628123456789", DecomposeJID("+628123456789"))
	assert.Equal(t, "628123456789", DecomposeJID("628123456789"))
	assert.Equal(t, "", DecomposeJID(""))
}

func TestComposeJID_FullJIDPassesThrough(t *testing.T) {
	jid := ComposeJID("628123456789@s.whatsapp.net")
	assert.Equal(t, "628123456789", jid.User)
	assert.Equal(t, types.DefaultUserServer, jid.Server)

	jid = ComposeJID("120363061234567890@g.us")
	assert.Equal(t, types.GroupServer, jid.Server)
}

func TestComposeJID_BarePhoneGetsUserServer(t *testing.T) {
	jid := ComposeJID("+628123456789")
	assert.Equal(t, "628123456789", jid.User)
	assert.Equal(t, types.DefaultUserServer, jid.Server)
}

func TestComposeJID_GroupShapedIDGetsGroupServer(t *testing.T) {
	// Legacy group ids carry a dash; modern ones are long digit strings.
	assert.Equal(t, types.GroupServer, ComposeJID("628123456789-1631537689").Server)
	assert.Equal(t, types.GroupServer, ComposeJID("120363061234567890").Server)
}

func TestFormatPhone(t *testing.T) {
	assert.Equal(t, "628123456789@s.whatsapp.net", FormatPhone("+628123456789"))
}

func TestFormatGroup(t *testing.T) {
	assert.Equal(t, "120363061234567890@g.us", FormatGroup("120363061234567890"))
	assert.Equal(t, "120363061234567890@g.us", FormatGroup("120363061234567890@g.us"))
}

func TestCloseReasonClassification(t *testing.T) {
	assert.True(t, ReasonLoggedOut.Terminal())
	assert.False(t, ReasonRestartRequired.Terminal())
	assert.False(t, ReasonConnectFailure.Terminal())

	assert.True(t, ReasonRestartRequired.Immediate())
	assert.True(t, ReasonStreamReplaced.Immediate())
	assert.False(t, ReasonConnectFailure.Immediate())
	assert.False(t, ReasonLoggedOut.Immediate())
}
