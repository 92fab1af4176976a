package bitutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignExtend32(t *testing.T) {
	assert.Equal(t, uint32(0xFFFFFFFA), SignExtend32(3, 0b1010))
	assert.Equal(t, uint32(0x2), SignExtend32(2, 0b1010))
}

func TestSignExtend64(t *testing.T) {
	assert.Equal(t, uint64(0xFFFFFFFFFFFFFFAA), SignExtend64(7, 0b10101010))
	assert.Equal(t, uint64(0x2A), SignExtend64(6, 0b10101010))
}

func TestSignExtend32To64(t *testing.T) {
	assert.Equal(t, uint64(0xFFFFFFFFFFFFFFEC), SignExtend32To64(0xFFFFFFEC))
	assert.Equal(t, uint64(20), SignExtend32To64(20))
}

func TestGetBitField32(t *testing.T) {
	assert.Equal(t, uint32(0b101110), GetBitField32(7, 2, 0b10111011))
}

func TestGetBitField64(t *testing.T) {
	assert.Equal(t, uint64(0b101), GetBitField64(13, 11, 0xABBA))
}

func TestSetBitField64(t *testing.T) {
	got := SetBitField64(53, 10, 0, 0x1234)
	assert.Equal(t, uint64(0x1234)<<10, got)
}

func TestMaskBits64(t *testing.T) {
	assert.Equal(t, uint64(0x2800), MaskBits64(13, 11, 0xABBA))
}
