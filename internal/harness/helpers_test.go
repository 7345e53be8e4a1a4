package harness

func boolPtr(b bool) *bool {
	return &b
}
