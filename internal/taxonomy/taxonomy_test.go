package taxonomy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_RegisteredDescriptorIsReturnedVerbatim(t *testing.T) {
	r := Default()
	d, err := r.Get("tone_1")
	require.NoError(t, err)
	assert.Equal(t, 6, d.NClasses)
	assert.Equal(t, "tone", d.Family)
	assert.Equal(t, 1, d.SyllableCount)
}

func TestGet_SynthesizesWellFormedUnregisteredID(t *testing.T) {
	r := Default()
	d, err := r.Get("tone_3")
	require.NoError(t, err)
	assert.Equal(t, 6, d.NClasses)
	assert.Equal(t, 3, d.SyllableCount)

	// Cached: a second lookup returns the same synthesized descriptor.
	d2, err := r.Get("tone_3")
	require.NoError(t, err)
	assert.Equal(t, d, d2)
}

func TestGet_UnknownFamilyErrors(t *testing.T) {
	r := Default()
	_, err := r.Get("klingon_1")
	require.Error(t, err)
	var unknown ErrUnknownProblemType
	require.ErrorAs(t, err, &unknown)
}

func TestGet_MalformedIDErrors(t *testing.T) {
	r := Default()

	for _, id := range []string{"tone", "tone_", "tone_0", "tone_-1", "tone_abc", "_1"} {
		_, err := r.Get(id)
		require.Error(t, err, "expected error for id %q", id)
		var unknown ErrUnknownProblemType
		require.ErrorAs(t, err, &unknown)
	}
}

func TestMakeID_RoundTripsWithParse(t *testing.T) {
	id := MakeID("vowel", 2)
	assert.Equal(t, "vowel_2", id)

	r := NewRegistry()
	r.RegisterFamily("vowel", FamilyDefault{NClasses: 12, PriorStrength: 5.0})
	d, err := r.Get(id)
	require.NoError(t, err)
	assert.Equal(t, 12, d.NClasses)
}

func TestRegisterFamily_DoesNotOverrideExplicitDescriptor(t *testing.T) {
	r := NewRegistry()
	r.RegisterFamily("tone", FamilyDefault{NClasses: 6, PriorStrength: 1.0})
	r.Register(Descriptor{ID: "tone_1", Family: "tone", SyllableCount: 1, NClasses: 6, PriorStrength: 99.0})

	d, err := r.Get("tone_1")
	require.NoError(t, err)
	assert.Equal(t, 99.0, d.PriorStrength)
}
