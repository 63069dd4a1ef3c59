// text.go - Text-(Un)Marshaling, damit JSON-Dateien und die HTTP-API Namen statt Zahlen nutzen
package ml

func (t DType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *DType) UnmarshalText(b []byte) error {
	if string(b) == "other" {
		*t = DTypeOther
		return nil
	}
	v, err := ParseDType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

func (l Layout) MarshalText() ([]byte, error) { return []byte(l.String()), nil }

func (l *Layout) UnmarshalText(b []byte) error {
	if s := string(b); s == "any" || s == "" {
		*l = LayoutAny
		return nil
	}
	v, err := ParseLayout(string(b))
	if err != nil {
		return err
	}
	*l = v
	return nil
}

func (t ComputeTier) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *ComputeTier) UnmarshalText(b []byte) error {
	v, err := ParseComputeTier(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

func (m SamplingMode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *SamplingMode) UnmarshalText(b []byte) error {
	v, err := ParseSamplingMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
