package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStub(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	NowFunc = func() time.Time { return at }
	defer func() { NowFunc = time.Now }()
	assert.Equal(t, at, Now())
	assert.Equal(t, time.Minute, Since(at.Add(-time.Minute)))
}
