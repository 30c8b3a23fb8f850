package conformance

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateProducesVectorsForEveryCase(t *testing.T) {
	vectors, err := Generate()
	require.NoError(t, err)
	require.Len(t, vectors, len(defaultCases))
	for _, v := range vectors {
		require.NotEmpty(t, v.ExpectedHMAC)
		require.NotEmpty(t, v.ExpectedPacket)
	}
}

func TestGeneratedVectorsValidate(t *testing.T) {
	vectors, err := Generate()
	require.NoError(t, err)
	require.NoError(t, Validate(vectors))
}

func TestValidateCatchesTamperedVector(t *testing.T) {
	vectors, err := Generate()
	require.NoError(t, err)
	vectors[0].ExpectedHMAC = "00000000000000000000000000000000"

	err = Validate(vectors)
	require.Error(t, err)
}

func TestWriteJSONRoundTrips(t *testing.T) {
	vectors, err := Generate()
	require.NoError(t, err)

	body, err := WriteJSON(vectors)
	require.NoError(t, err)
	require.Contains(t, string(body), "expected_hmac")
}
