package evidence

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheck(t *testing.T) {
	tests := []struct {
		name string
		ref  string
		want error
	}{
		{"cidv0", "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG", nil},
		{"another cidv0", "QmT5NvUtoM5nWFfrQdVrFtvGfKFmG7AHE8P34isapyhCxX", nil},
		{"cidv1 base32", "bafybeigdyrzt5sfp7udm7hu76uh7y26nf3efuylqabf3oclgtqy55fbzdi", nil},
		{"cidv1 raw", "bafkreihdwdcefgh4dqkjv67uzcmw7ojee6xedzdetojuzjevtenxquvyku", nil},
		{"empty", "", ErrEmptyRef},
		{"too short", "invalid", ErrInvalidRef},
		{"padded", " QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG", ErrInvalidRef},
		{"truncated cidv0", "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbd", ErrInvalidRef},
		{"not base58", "Qm0000000000000000000000000000000000000000000O", ErrInvalidRef},
		{"oversized", "b" + strings.Repeat("a", 200), ErrInvalidRef},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := Check(tc.ref)
			if tc.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tc.want)
			}
			assert.Equal(t, tc.want == nil, CIDValidator{}.IsValidEvidenceRef(tc.ref))
		})
	}
}

func TestValidatorFunc(t *testing.T) {
	v := ValidatorFunc(func(ref string) bool { return ref == "ok" })
	assert.True(t, v.IsValidEvidenceRef("ok"))
	assert.False(t, v.IsValidEvidenceRef("nope"))
}
