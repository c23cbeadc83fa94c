package juniper

import (
	"image"
	"testing"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/stretchr/testify/assert"
)

func TestEbitenSpareFramebuffersBySize(t *testing.T) {
	d := NewEbitenDevice()
	small, large := image.Pt(64, 32), image.Pt(128, 128)

	assert.Nil(t, d.takeSpare(small))

	imgs := make([]*ebiten.Image, maxSpareFramebuffers+1)
	for i := range imgs {
		imgs[i] = new(ebiten.Image)
	}
	for i := 0; i < maxSpareFramebuffers; i++ {
		assert.True(t, d.parkSpare(small, imgs[i]))
	}
	assert.False(t, d.parkSpare(small, imgs[maxSpareFramebuffers]), "size is full")
	assert.True(t, d.parkSpare(large, imgs[maxSpareFramebuffers]))

	// Most recently parked first, never crossing sizes.
	assert.Same(t, imgs[maxSpareFramebuffers-1], d.takeSpare(small))
	assert.Same(t, imgs[maxSpareFramebuffers-2], d.takeSpare(small))
	assert.Same(t, imgs[maxSpareFramebuffers], d.takeSpare(large))
	assert.Nil(t, d.takeSpare(large))
	assert.Nil(t, d.takeSpare(image.Pt(32, 64)))

	assert.True(t, d.parkSpare(small, imgs[maxSpareFramebuffers]), "room again after take")
}

func TestEbitenFramebufferUnknownHandle(t *testing.T) {
	d := NewEbitenDevice()
	d.DeleteFramebuffer(42)
	assert.Nil(t, d.Framebuffer(42))
	assert.Empty(t, d.spare)

	_, err := d.CreateFramebuffer(0, 16)
	assert.Error(t, err)
}
