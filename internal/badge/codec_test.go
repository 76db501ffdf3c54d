package badge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/penpal-confirmation-bot/internal/types"
)

const (
	rangedTemplate  = "0-49:📧 Emails: {E} | 📬 Letters: {L}"
	specialTemplate = "Moderator - 📧 Emails: {E} | 📬 Letters: {L}"
)

func TestDecode(t *testing.T) {
	codec := DefaultCodec()

	tests := []struct {
		name   string
		text   string
		want   types.Counters
		wantOK bool
	}{
		{"plain badge", "📧 Emails: 1 | 📬 Letters: 1", types.Counters{Emails: 1, Letters: 1}, true},
		{"decorated badge", "Snail Mail Volunteer - 📧 Emails: 12 | 📬 Letters: 30", types.Counters{Emails: 12, Letters: 30}, true},
		{"zero badge", "📧 Emails: 0 | 📬 Letters: 0", types.Counters{}, true},
		{"placeholder groups default to zero", "📧 Emails: {E} | 📬 Letters: {L}", types.Counters{}, true},
		{"overflowing number defaults to zero", "📧 Emails: 99999999999999999999 | 📬 Letters: 2", types.Counters{Letters: 2}, true},
		{"unrelated text", "Trader: 15", types.Counters{}, false},
		{"empty text", "", types.Counters{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := codec.Decode(tt.text)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatchRanged(t *testing.T) {
	codec := DefaultCodec()

	m, ok := codec.MatchRanged("50-99:📧 Emails: {E} | 📬 Letters: {L}")
	require.True(t, ok)
	assert.Equal(t, 50, m.Min)
	assert.Equal(t, 99, m.Max)
	require.Len(t, m.Layout, 3)
	assert.Equal(t, Span{Start: 0, End: 6}, m.Layout[0])

	_, ok = codec.MatchRanged(specialTemplate)
	assert.False(t, ok, "special template has no range prefix")
}

func TestSpecialLayout(t *testing.T) {
	codec := DefaultCodec()

	layout, ok := codec.SpecialLayout(specialTemplate)
	require.True(t, ok)
	require.Len(t, layout, 2)
	assert.Equal(t, "{E}", specialTemplate[layout[0].Start:layout[0].End])
	assert.Equal(t, "{L}", specialTemplate[layout[1].Start:layout[1].End])

	_, ok = codec.SpecialLayout("Trader")
	assert.False(t, ok)
}

func TestEncode_Ranged(t *testing.T) {
	codec := DefaultCodec()
	m, ok := codec.MatchRanged(rangedTemplate)
	require.True(t, ok)

	text, err := Encode(rangedTemplate, m.Layout, 6, 6)
	require.NoError(t, err)
	assert.Equal(t, "📧 Emails: 6 | 📬 Letters: 6", text)
}

func TestEncode_Special(t *testing.T) {
	codec := DefaultCodec()
	layout, ok := codec.SpecialLayout(specialTemplate)
	require.True(t, ok)

	text, err := Encode(specialTemplate, layout, 6, 6)
	require.NoError(t, err)
	assert.Equal(t, "Moderator - 📧 Emails: 6 | 📬 Letters: 6", text)
}

func TestEncode_OnlyTouchesMatchedSpans(t *testing.T) {
	codec := DefaultCodec()
	tmpl := "Top {E} club 0-49:📧 Emails: {E} | 📬 Letters: {L}"
	m, ok := codec.MatchRanged(tmpl)
	require.True(t, ok)

	text, err := Encode(tmpl, m.Layout, 3, 4)
	require.NoError(t, err)
	assert.Equal(t, "Top {E} club 📧 Emails: 3 | 📬 Letters: 4", text)
}

func TestEncode_RejectsBadLayouts(t *testing.T) {
	_, err := Encode("abc", Layout{{Start: 0, End: 1}}, 1, 1)
	assert.Error(t, err)

	_, err = Encode("abcdef", Layout{{Start: 3, End: 4}, {Start: 0, End: 1}}, 1, 1)
	assert.Error(t, err)

	_, err = Encode("abc", Layout{{Start: 0, End: 0}, {Start: 1, End: 2}, {Start: 2, End: 9}}, 1, 1)
	assert.Error(t, err)
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	codec := DefaultCodec()
	templates := []string{
		rangedTemplate,
		"Regular 100-199:📧 Emails: {E} | 📬 Letters: {L} ✉️",
	}

	for _, tmpl := range templates {
		m, ok := codec.MatchRanged(tmpl)
		require.True(t, ok, tmpl)
		for _, e := range []int{0, 1, 9, 10, 49, 123, 100000} {
			for _, l := range []int{0, 1, 7, 50, 999} {
				text, err := Encode(tmpl, m.Layout, e, l)
				require.NoError(t, err)
				got, ok := codec.Decode(text)
				require.True(t, ok, text)
				assert.Equal(t, types.Counters{Emails: e, Letters: l}, got)
			}
		}
	}
}

func TestNewCodec(t *testing.T) {
	_, err := NewCodec(`Emails: (\d+) Letters: \d+`, "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "emails")

	_, err = NewCodec("", `(\d+)-(\d+):`, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ranged template")

	_, err = NewCodec("", "(", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ranged template")

	codec, err := NewCodec(`E(?P<emails>\d+)L(?P<letters>\d+)`, "  ", "")
	require.NoError(t, err)
	got, ok := codec.Decode("E4L5")
	assert.True(t, ok)
	assert.Equal(t, types.Counters{Emails: 4, Letters: 5}, got)
}

// Community wikis written for the first version of the bot use positional groups.
const (
	positionalCounter = `📧 Emails: (\d+|{E}) \| 📬 Letters: (\d+|{L})`
	positionalRanged  = `((\d+)-(\d+):)📧 Emails: {E} \| 📬 Letters: {L}`
	positionalSpecial = `📧 Emails: {E} \| 📬 Letters: {L}`
)

func TestNewCodec_PositionalPatterns(t *testing.T) {
	codec, err := NewCodec(positionalCounter, positionalRanged, positionalSpecial)
	require.NoError(t, err)

	got, ok := codec.Decode("Snail Mail Volunteer - 📧 Emails: 12 | 📬 Letters: 30")
	require.True(t, ok)
	assert.Equal(t, types.Counters{Emails: 12, Letters: 30}, got)

	got, ok = codec.Decode("📧 Emails: {E} | 📬 Letters: {L}")
	require.True(t, ok)
	assert.Equal(t, types.Counters{}, got)

	_, ok = codec.Decode("Trader: 15")
	assert.False(t, ok)

	m, ok := codec.MatchRanged("Regular 50-99:📧 Emails: {E} | 📬 Letters: {L}")
	require.True(t, ok)
	assert.Equal(t, 50, m.Min)
	assert.Equal(t, 99, m.Max)
	text, err := Encode("Regular 50-99:📧 Emails: {E} | 📬 Letters: {L}", m.Layout, 3, 4)
	require.NoError(t, err)
	assert.Equal(t, "Regular 📧 Emails: 3 | 📬 Letters: 4", text)

	layout, ok := codec.SpecialLayout(specialTemplate)
	require.True(t, ok)
	text, err = Encode(specialTemplate, layout, 6, 7)
	require.NoError(t, err)
	assert.Equal(t, "Moderator - 📧 Emails: 6 | 📬 Letters: 7", text)

	_, ok = codec.MatchRanged(specialTemplate)
	assert.False(t, ok)
}

func TestNewCodec_PositionalRoundTrip(t *testing.T) {
	codec, err := NewCodec(positionalCounter, positionalRanged, positionalSpecial)
	require.NoError(t, err)

	m, ok := codec.MatchRanged(rangedTemplate)
	require.True(t, ok)
	for _, e := range []int{0, 5, 120} {
		text, err := Encode(rangedTemplate, m.Layout, e, e+1)
		require.NoError(t, err)
		got, ok := codec.Decode(text)
		require.True(t, ok, text)
		assert.Equal(t, types.Counters{Emails: e, Letters: e + 1}, got)
	}
}
