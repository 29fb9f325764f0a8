package chat

import (
	"strings"
	"testing"

	"github.com/region23/bookingbot/internal/testutils"
)

func TestAESCodec_RoundTrip(t *testing.T) {
	codec, err := NewAESCodec("user-id-secret")
	testutils.AssertNoError(t, err, "NewAESCodec")

	ids := []string{
		"organizer@example.com",
		"a@b.c",
		"exactly16bytes!!",
		"клиент@почта.рф",
	}

	for _, id := range ids {
		t.Run(id, func(t *testing.T) {
			encoded, err := codec.Encode(id)
			testutils.AssertNoError(t, err, "Encode")
			testutils.AssertFalse(t, strings.ContainsAny(encoded, "=+/"), "encoded id must be url-safe without padding")
			testutils.AssertFalse(t, strings.Contains(encoded, id), "raw id must not leak")

			decoded, err := codec.Decode(encoded)
			testutils.AssertNoError(t, err, "Decode")
			testutils.AssertEqual(t, id, decoded, "round trip")
		})
	}
}

func TestAESCodec_Deterministic(t *testing.T) {
	codec, _ := NewAESCodec("secret")
	other, _ := NewAESCodec("another-secret")

	a, _ := codec.Encode("organizer@example.com")
	b, _ := codec.Encode("organizer@example.com")
	c, _ := other.Encode("organizer@example.com")

	testutils.AssertEqual(t, a, b, "same input and key give the same id")
	testutils.AssertTrue(t, a != c, "different keys give different ids")

	// 21 байт -> два блока -> 32 байта -> 43 символа без padding
	testutils.AssertEqual(t, 43, len(a), "encoded length")
}

func TestAESCodec_DecodeRejectsGarbage(t *testing.T) {
	codec, _ := NewAESCodec("secret")

	_, err := codec.Decode("not base64 !!")
	testutils.AssertError(t, err, "invalid base64")

	_, err = codec.Decode("AAAA")
	testutils.AssertError(t, err, "invalid block length")
}
