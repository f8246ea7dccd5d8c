package schematic

import "bytes"

// MarshalBinary encodes the schematic at DefaultLevel and returns the
// result. Like Encode it compacts the palette.
func (s *Schematic) MarshalBinary() ([]byte, error) {
	b := new(bytes.Buffer)
	if err := Encode(b, s, DefaultLevel); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// UnmarshalBinary decodes the schematic from binary form, replacing the
// contents of s. A signature mismatch is ignored.
func (s *Schematic) UnmarshalBinary(b []byte) error {
	var dec Decoder
	d, err := dec.Decode(bytes.NewReader(b))
	if err != nil {
		return err
	}
	*s = *d
	return nil
}
