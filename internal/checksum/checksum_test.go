package checksum

import "testing"

func TestContent_IgnoresWhitespaceNoise(t *testing.T) {
	a := Content("工作日志 2026-01-28", "- fix login  \r\n- ship\r\n")
	b := Content(" 工作日志 2026-01-28", "- fix login\n- ship")
	if a != b {
		t.Errorf("digests differ: %s vs %s", a, b)
	}
}

func TestContent_TitleMatters(t *testing.T) {
	if Content("a", "body") == Content("b", "body") {
		t.Error("different titles must give different digests")
	}
}
