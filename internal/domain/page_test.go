package domain

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestPagePhases(t *testing.T) {
	for _, p := range Menu(PhaseUnauthenticated) {
		assert.Equal(t, PhaseUnauthenticated, p.Phase(), p)
	}
	for _, p := range Menu(PhaseAuthenticated) {
		assert.Equal(t, PhaseAuthenticated, p.Phase(), p)
	}
	assert.False(t, PageID("Admin").Valid())
	assert.False(t, PageID("").Valid())
}

func TestMenuIsCopy(t *testing.T) {
	m := Menu(PhaseAuthenticated)
	m[0] = "Tampered"
	assert.Equal(t, PageDashboard, Menu(PhaseAuthenticated)[0])
	assert.Nil(t, Menu(PhaseUnknown))
}

func TestEntryPage(t *testing.T) {
	assert.Equal(t, PageLogin, EntryPage(PhaseUnauthenticated))
	assert.Equal(t, PageDashboard, EntryPage(PhaseAuthenticated))
	assert.Equal(t, PageLogin, EntryPage(PhaseUnknown))
}

func TestNormalizeUsername(t *testing.T) {
	assert.Equal(t, "alice", NormalizeUsername("  Alice "))
	assert.Equal(t, "Bob", DisplayName("bob"))
	assert.Equal(t, "", DisplayName(""))
}

func TestDisplayNameNonASCII(t *testing.T) {
	name := DisplayName(NormalizeUsername(" Élise "))
	assert.Equal(t, "Élise", name)
	assert.True(t, utf8.ValidString(name))
	assert.Equal(t, "Öz", DisplayName("öz"))
}
