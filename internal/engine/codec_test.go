package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFakeAddressCodecRoundTrip(t *testing.T) {
	c := NewFakeAddressCodec()

	addr := c.Encode("main.lua", 42)
	path, line := c.Decode(addr)

	assert.Equal(t, "main.lua", path)
	assert.Equal(t, 42, line)
}

func TestFakeAddressCodecEmptyPathReservesZero(t *testing.T) {
	c := NewFakeAddressCodec()

	addr := c.Encode("", 7)
	assert.Equal(t, uint64(7)*FakeAddressDivisor, addr)

	path, _ := c.Decode(addr)
	assert.Empty(t, path)
}

func TestFakeAddressCodecSameFileStableID(t *testing.T) {
	c := NewFakeAddressCodec()

	a1 := c.Encode("script/foo.lua", 1)
	a2 := c.Encode("script/foo.lua", 2)

	assert.Equal(t, a1%FakeAddressDivisor, a2%FakeAddressDivisor, "same file should keep its file id")
}

func TestFakeAddressCodecWorkingDirRelative(t *testing.T) {
	c := NewFakeAddressCodec()
	c.SetWorkingDir(`C:\Game\Scripts`)

	full := c.Encode(`C:\Game\Scripts\foo.lua`, 10)
	relative := c.Encode("foo.lua", 20)

	assert.Equal(t, full%FakeAddressDivisor, relative%FakeAddressDivisor,
		"working-dir-relative path should resolve to the same file id")
}

func TestFakeAddressCodecSetWorkingDirIsSetOnce(t *testing.T) {
	c := NewFakeAddressCodec()
	c.SetWorkingDir("/game/scripts")
	c.SetWorkingDir("/other/place")

	full := c.Encode("/game/scripts/foo.lua", 1)
	relative := c.Encode("foo.lua", 2)

	assert.Equal(t, full%FakeAddressDivisor, relative%FakeAddressDivisor,
		"second SetWorkingDir call should have been a no-op")
}

func TestFakeAddressCodecMarkerFallback(t *testing.T) {
	c := NewFakeAddressCodec()

	a1 := c.Encode("/abs/path/source/bar.lua", 1)
	a2 := c.Encode("source/bar.lua", 2)

	assert.Equal(t, a1%FakeAddressDivisor, a2%FakeAddressDivisor, "source/ marker fallback should unify ids")
}

func TestFakeAddressCodecScopedPerInstance(t *testing.T) {
	c1 := NewFakeAddressCodec()
	c2 := NewFakeAddressCodec()

	a1 := c1.Encode("foo.lua", 1)
	a2 := c2.Encode("bar.lua", 1)

	assert.Equal(t, a1, a2, "first file registered in an independent codec should get the same id")
}
