package tablepad

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArtifacts(t *testing.T) {
	t.Parallel()

	a := NewArtifacts()
	id1, url1 := a.Create(&Blob{Data: []byte("one"), ContentType: "text/plain", FileName: "output.csv"})
	id2, url2 := a.Create(&Blob{Data: []byte("two"), ContentType: "text/plain", FileName: "output.csv"})

	assert.NotEqual(t, id1, id2)
	_, err := uuid.Parse(id1)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url1, "/downloads/"))
	assert.Equal(t, DownloadURL(id2), url2)
	assert.Equal(t, 2, a.Len(), "a new artifact does not revoke the previous one")

	blob, err := a.Get(id1)
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), blob.Data)

	require.NoError(t, a.Revoke(id1))
	_, err = a.Get(id1)
	require.ErrorIs(t, err, ErrArtifactNotFound)
	assert.ErrorIs(t, a.Revoke(id1), ErrArtifactNotFound)
	assert.Equal(t, 1, a.Len())
}
