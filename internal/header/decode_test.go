package header

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeEncodedWords(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "base64 utf-8",
			in:   "=?UTF-8?B?" + base64.StdEncoding.EncodeToString([]byte("Héllo")) + "?=",
			want: "Héllo",
		},
		{
			name: "lowercase encoding flag",
			in:   "=?utf-8?b?" + base64.StdEncoding.EncodeToString([]byte("Héllo")) + "?=",
			want: "Héllo",
		},
		{
			name: "unpadded base64",
			in:   "=?UTF-8?B?" + base64.RawStdEncoding.EncodeToString([]byte("ab")) + "?=",
			want: "ab",
		},
		{
			name: "quoted printable",
			in:   "=?UTF-8?Q?Caf=C3=A9_au_lait?=",
			want: "Café au lait",
		},
		{
			name: "encoded underscore survives",
			in:   "=?UTF-8?Q?snake=5Fcase?=",
			want: "snake_case",
		},
		{
			name: "latin-1 charset is converted",
			in:   "=?ISO-8859-1?Q?Caf=E9?=",
			want: "Café",
		},
		{
			name: "surrounding text passes through",
			in:   "Re: =?UTF-8?Q?caf=C3=A9?= tomorrow",
			want: "Re: café tomorrow",
		},
		{
			name: "unknown encoding flag is inert",
			in:   "=?bogus?Z?xyz?=",
			want: "=?bogus?Z?xyz?=",
		},
		{
			name: "invalid base64 left unchanged",
			in:   "=?UTF-8?B?!!!!?=",
			want: "=?UTF-8?B?!!!!?=",
		},
		{
			name: "plain text",
			in:   "Your invoice is ready",
			want: "Your invoice is ready",
		},
		{
			name: "empty",
			in:   "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DecodeEncodedWords(tt.in))
		})
	}
}

func TestRepairMojibake(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "double decoded e-acute", in: "CafÃ©", want: "Café"},
		{name: "double decoded nbsp", in: "\u00c2\u00a0", want: "\u00a0"},
		{name: "clean ascii", in: "Hello", want: "Hello"},
		{name: "clean accented text", in: "Café", want: "Café"},
		{name: "outside latin-1 is untouched", in: "Ã© 日本", want: "Ã© 日本"},
		{name: "invalid utf-8 after repair is untouched", in: "Ã©Ã", want: "Ã©Ã"},
		{name: "empty", in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RepairMojibake(tt.in))
		})
	}
}
