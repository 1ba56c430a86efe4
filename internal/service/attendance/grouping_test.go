package attendance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupByWorkDate(t *testing.T) {
	p := DefaultPolicy()
	tuesday := monday.AddDate(0, 0, 1)

	t.Run("early punches continue an evening shift", func(t *testing.T) {
		days := GroupByWorkDate(stored(at(monday, 22, 0), at(tuesday, 5, 50)), p)

		require.Len(t, days, 1)
		assert.Equal(t, monday, days[0].WorkDate)
		assert.Len(t, days[0].Punches, 2)
	})

	t.Run("early punch with daytime punches stays", func(t *testing.T) {
		days := GroupByWorkDate(stored(at(monday, 22, 0), at(tuesday, 5, 50), at(tuesday, 9, 0)), p)

		require.Len(t, days, 2)
		assert.Equal(t, tuesday, days[1].WorkDate)
		assert.Len(t, days[1].Punches, 2)
	})

	t.Run("no evening punch on the previous day", func(t *testing.T) {
		days := GroupByWorkDate(stored(at(monday, 8, 0), at(monday, 17, 0), at(tuesday, 5, 50)), p)
		require.Len(t, days, 2)
	})

	t.Run("punches are sorted within a day", func(t *testing.T) {
		days := GroupByWorkDate(stored(at(monday, 17, 0), at(monday, 8, 0)), p)

		require.Len(t, days, 1)
		assert.Equal(t, at(monday, 8, 0), days[0].Punches[0].Timestamp)
	})

	t.Run("local timezone decides the date", func(t *testing.T) {
		local := p
		local.Location = time.FixedZone("UTC-6", -6*3600)

		// 03:00 UTC Tuesday is 21:00 Monday local.
		days := GroupByWorkDate(stored(at(tuesday, 3, 0)), local)

		require.Len(t, days, 1)
		y, m, d := days[0].WorkDate.Date()
		assert.Equal(t, []int{2024, 3, 4}, []int{y, int(m), d})
	})
}

func TestDatesBetween(t *testing.T) {
	days := DatesBetween(monday, monday.AddDate(0, 0, 2))
	require.Len(t, days, 3)
	assert.Equal(t, monday.AddDate(0, 0, 2), days[2])
	assert.Empty(t, DatesBetween(monday, monday.AddDate(0, 0, -1)))
}
