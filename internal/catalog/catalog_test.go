package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/penpal-confirmation-bot/internal/badge"
	"github.com/jonathan/penpal-confirmation-bot/internal/types"
)

type fakeTagger struct {
	calls [][2]string
	err   error
}

func (f *fakeTagger) UpdateTemplateCategory(_ context.Context, templateID, tag string) error {
	f.calls = append(f.calls, [2]string{templateID, tag})
	return f.err
}

func testDescriptors() []types.TemplateDescriptor {
	return []types.TemplateDescriptor{
		{ID: "low", Text: "0-49:📧 Emails: {E} | 📬 Letters: {L}"},
		{ID: "high", Text: "50-99:📧 Emails: {E} | 📬 Letters: {L}"},
		{ID: "mod-ranged", Text: "Moderator Ranged - 0-999999:📧 Emails: {E} | 📬 Letters: {L}", ModOnly: true},
		{ID: "snail", Text: "Snail Mail Volunteer - 📧 Emails: {E} | 📬 Letters: {L}", CSSClass: "snail"},
		{ID: "moderator", Text: "Moderator - 📧 Emails: {E} | 📬 Letters: {L}", CSSClass: ""},
		{ID: "plain", Text: "Just a label"},
	}
}

func TestBuild_Classifies(t *testing.T) {
	tagger := &fakeTagger{}
	c := Build(context.Background(), testDescriptors(), badge.DefaultCodec(), tagger, nil)

	ranged := c.Ranged()
	require.Len(t, ranged, 3)
	assert.Equal(t, "low", ranged[0].ID)
	assert.Equal(t, 0, ranged[0].Min)
	assert.Equal(t, 49, ranged[0].Max)
	assert.False(t, ranged[0].ModOnly)
	assert.True(t, ranged[2].ModOnly)

	special := c.Special()
	require.Len(t, special, 2)
	assert.Equal(t, "moderator", special[0].CategoryID)
	assert.Equal(t, "snail", special[1].CategoryID)

	// only the template whose tag differs from its id is repaired
	assert.Equal(t, [][2]string{{"moderator", "moderator"}}, tagger.calls)
}

func TestBuild_RepairFailureDoesNotBlock(t *testing.T) {
	tagger := &fakeTagger{err: errors.New("forbidden")}
	c := Build(context.Background(), testDescriptors(), badge.DefaultCodec(), tagger, nil)
	assert.NotNil(t, c.SelectSpecial("moderator"))
}

func TestBuild_DuplicateRangeLastWins(t *testing.T) {
	descriptors := []types.TemplateDescriptor{
		{ID: "first", Text: "0-49:📧 Emails: {E} | 📬 Letters: {L}"},
		{ID: "other", Text: "50-99:📧 Emails: {E} | 📬 Letters: {L}"},
		{ID: "second", Text: "New - 0-49:📧 Emails: {E} | 📬 Letters: {L}"},
	}
	c := Build(context.Background(), descriptors, badge.DefaultCodec(), nil, nil)

	ranged := c.Ranged()
	require.Len(t, ranged, 2)
	assert.Equal(t, "second", ranged[0].ID, "replacement keeps the original position")
	assert.Equal(t, "other", ranged[1].ID)
}

func TestBuild_Idempotent(t *testing.T) {
	codec := badge.DefaultCodec()
	first := Build(context.Background(), testDescriptors(), codec, nil, nil)
	second := Build(context.Background(), testDescriptors(), codec, nil, nil)

	assert.Equal(t, first.Ranged(), second.Ranged())
	assert.Equal(t, first.Special(), second.Special())
}

func TestBuild_MalformedBoundDefaultsToZero(t *testing.T) {
	descriptors := []types.TemplateDescriptor{
		{ID: "huge", Text: "0-99999999999999999999:📧 Emails: {E} | 📬 Letters: {L}"},
	}
	c := Build(context.Background(), descriptors, badge.DefaultCodec(), nil, nil)

	ranged := c.Ranged()
	require.Len(t, ranged, 1)
	assert.Equal(t, 0, ranged[0].Max)
}

func TestBuild_ReportsOverlaps(t *testing.T) {
	descriptors := []types.TemplateDescriptor{
		{ID: "a", Text: "0-49:📧 Emails: {E} | 📬 Letters: {L}"},
		{ID: "b", Text: "40-99:📧 Emails: {E} | 📬 Letters: {L}"},
		{ID: "mod", Text: "Mod - 0-999:📧 Emails: {E} | 📬 Letters: {L}", ModOnly: true},
	}
	c := Build(context.Background(), descriptors, badge.DefaultCodec(), nil, nil)

	overlaps := c.Overlaps()
	require.Len(t, overlaps, 1)
	assert.Equal(t, "a", overlaps[0].First.ID)
	assert.Equal(t, "b", overlaps[0].Second.ID)

	// first loaded wins inside the overlap
	assert.Equal(t, "a", c.SelectRanged(45, false).ID)
}

func TestSelectRanged(t *testing.T) {
	c := Build(context.Background(), testDescriptors(), badge.DefaultCodec(), nil, nil)

	tests := []struct {
		name   string
		total  int
		isMod  bool
		wantID string
	}{
		{"lower bound", 0, false, "low"},
		{"inside low", 10, false, "low"},
		{"upper bound inclusive", 49, false, "low"},
		{"next range", 50, false, "high"},
		{"no range for non-mod", 9999, false, ""},
		{"moderator gets mod-only", 10, true, "mod-ranged"},
		{"moderator large total", 9999, true, "mod-ranged"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.SelectRanged(tt.total, tt.isMod)
			if tt.wantID == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.wantID, got.ID)
		})
	}
}

func TestSelectRanged_ModGating(t *testing.T) {
	c := Build(context.Background(), testDescriptors(), badge.DefaultCodec(), nil, nil)
	for total := 0; total < 100; total++ {
		assert.True(t, c.SelectRanged(total, true).ModOnly)
		assert.False(t, c.SelectRanged(total, false).ModOnly)
	}
}

func TestSelectSpecial(t *testing.T) {
	c := Build(context.Background(), testDescriptors(), badge.DefaultCodec(), nil, nil)

	got := c.SelectSpecial("snail")
	require.NotNil(t, got)
	assert.Equal(t, "Snail Mail Volunteer - 📧 Emails: {E} | 📬 Letters: {L}", got.RawText)

	assert.Nil(t, c.SelectSpecial("unknown"))
	assert.Nil(t, c.SelectSpecial(""))
}
