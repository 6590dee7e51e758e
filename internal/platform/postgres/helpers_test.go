package postgres

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUUIDArrayLiteral(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "{}", uuidArrayLiteral(nil))

	a := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	b := uuid.MustParse("22222222-2222-2222-2222-222222222222")
	assert.Equal(t,
		"{11111111-1111-1111-1111-111111111111,22222222-2222-2222-2222-222222222222}",
		uuidArrayLiteral([]uuid.UUID{a, b}))
}

func TestScanUUIDArray(t *testing.T) {
	t.Parallel()

	ids, err := scanUUIDArray([]byte(`["11111111-1111-1111-1111-111111111111"]`))
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Equal(t, "11111111-1111-1111-1111-111111111111", ids[0].String())

	ids, err = scanUUIDArray([]byte(`[]`))
	require.NoError(t, err)
	assert.Empty(t, ids)

	ids, err = scanUUIDArray(nil)
	require.NoError(t, err)
	assert.NotNil(t, ids)
	assert.Empty(t, ids)

	_, err = scanUUIDArray([]byte(`["not-a-uuid"]`))
	assert.Error(t, err)
}

func TestEscapeLike(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `plain`, escapeLike(`plain`))
	assert.Equal(t, `100\%`, escapeLike(`100%`))
	assert.Equal(t, `a\_b`, escapeLike(`a_b`))
	assert.Equal(t, `c\\d`, escapeLike(`c\d`))
}
