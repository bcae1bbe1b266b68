package memadapter

import "github.com/luigitni/modsnap/page"

// Codec is the trivial PageCodec: this engine's Image already is the
// on-disk byte layout, so a real host engine's codec would typically
// only need to validate a checksum or translate a
// differently laid-out header. This adapter has neither, so Encode and
// Decode are copy-through, kept as a distinct type rather than deleted
// so external.PageCodec has a concrete implementation tests can wire
// in without assuming Image's layout is the wire format everywhere.
type Codec struct{}

func (Codec) Encode(im *page.Image) []byte {
	return im.Bytes()
}

func (Codec) Decode(raw []byte) *page.Image {
	return page.FromBytes(raw).Clone()
}
