package bactag

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTagHeaderRoundTrip(t *testing.T) {
	cases := []struct {
		name       string
		tagNumber  uint32
		class      Class
		length     int
	}{
		{"small-app", 2, ClassApplication, 4},
		{"small-ctx", 0, ClassContext, 0},
		{"extended-tag-number", 20, ClassContext, 1},
		{"extended-length-254", 1, ClassApplication, 254},
		{"extended-length-65536", 1, ClassApplication, 70000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			buf := AppendTag(nil, tc.tagNumber, tc.class, tc.length)
			num, class, length, headerLen, err := DecodeTagNumber(buf)
			require.NoError(t, err)
			require.Equal(t, tc.tagNumber, num)
			require.Equal(t, tc.class, class)
			require.Equal(t, tc.length, length)
			require.Equal(t, len(buf), headerLen)
		})
	}
}

func TestOpeningClosingTags(t *testing.T) {
	buf := AppendOpeningTag(nil, 3)
	require.True(t, IsOpeningTagNumber(buf, 3))
	require.False(t, IsClosingTagNumber(buf, 3))

	buf = AppendClosingTag(nil, 3)
	require.True(t, IsClosingTagNumber(buf, 3))
	require.False(t, IsOpeningTagNumber(buf, 3))
}

func TestDecodeTagNumberTruncation(t *testing.T) {
	full := AppendTag(nil, 1, ClassApplication, 70000)
	for n := 0; n < len(full); n++ {
		_, _, _, _, err := DecodeTagNumber(full[:n])
		require.Error(t, err, "n=%d", n)
	}
}

func TestUnsignedMinimalEncoding(t *testing.T) {
	cases := []struct {
		v    uint64
		size int
	}{
		{0, 1}, {255, 1}, {256, 2}, {65535, 2}, {65536, 3},
		{1 << 32, 5}, {^uint64(0), 8},
	}
	for _, tc := range cases {
		buf := AppendUnsigned(nil, tc.v)
		require.Len(t, buf, tc.size)
		got, err := DecodeUnsigned(buf, len(buf))
		require.NoError(t, err)
		require.Equal(t, tc.v, got)
	}
}

func TestSignedRoundTrip(t *testing.T) {
	for _, v := range []int64{0, -1, 127, -128, 128, -129, 70000, -70000} {
		buf := AppendSigned(nil, v)
		got, err := DecodeSigned(buf, len(buf))
		require.NoError(t, err)
		require.Equal(t, v, got)
	}
}

func TestRealRoundTrip(t *testing.T) {
	buf := AppendReal(nil, 3.25)
	require.Len(t, buf, 4)
	v, err := DecodeReal(buf)
	require.NoError(t, err)
	require.Equal(t, float32(3.25), v)
}

func TestObjectIdentifierPacking(t *testing.T) {
	oid := ObjectIdentifier{Type: 8, Instance: 1}
	encoded := oid.Encode()
	require.Equal(t, uint32(8<<22|1), encoded)
	got := DecodeObjectIdentifierValue(encoded)
	require.Equal(t, oid, got)
}

func TestDryRunSizingMatchesWrite(t *testing.T) {
	v := Value{Tag: UnsignedInt, Unsigned: 1234567}
	dryRun := AppendApplication(nil, v)
	real := AppendApplication(make([]byte, 0, 32), v)
	require.Equal(t, len(dryRun), len(real))
	require.Equal(t, dryRun, real)
}

func TestApplicationValueRoundTrip(t *testing.T) {
	values := []Value{
		{Tag: Null},
		{Tag: Boolean, Bool: true},
		{Tag: Boolean, Bool: false},
		{Tag: UnsignedInt, Unsigned: 260},
		{Tag: SignedInt, Signed: -42},
		{Tag: Real, Real: 98.6},
		{Tag: Double, Double: 3.14159},
		{Tag: OctetString, Octets: []byte{0x01, 0x02, 0x03}},
		{Tag: CharacterString, CharEnc: EncodingANSIX34, Chars: "AI-1"},
		{Tag: Enumerated, Enum: 5},
		{Tag: Date, DateVal: DateValue{Year: 2024, Month: 3, Day: 15, DayOfWeek: 5}},
		{Tag: Time, TimeVal: TimeValue{Hour: 13, Minute: 5, Second: 0, Hundredths: 0}},
		{Tag: ObjectID, ObjID: ObjectIdentifier{Type: 0, Instance: 1}},
		{Tag: BitString, Bits: BitString{BitsUsed: 10, Bytes: []byte{0xAB, 0xC0}}},
	}
	for _, v := range values {
		buf := AppendApplication(nil, v)
		got, n, err := DecodeApplication(buf)
		require.NoError(t, err)
		require.Equal(t, len(buf), n)
		require.Equal(t, v, got)
	}
}

func TestDecodeApplicationTruncationSafety(t *testing.T) {
	buf := AppendApplication(nil, Value{Tag: CharacterString, CharEnc: EncodingANSIX34, Chars: "hello world"})
	for n := 0; n < len(buf); n++ {
		_, _, err := DecodeApplication(buf[:n])
		require.Error(t, err, "n=%d", n)
	}
}
