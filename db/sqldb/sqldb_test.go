package sqldb

import (
	"strings"
	"testing"
)

func TestNewUnknownTypeListsRegistered(t *testing.T) {
	RegisterFactory("fake-registry-test", func(conf *Conf) (Client, error) { return nil, nil })
	_, err := New("oracle", &Conf{})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "fake-registry-test") {
		t.Errorf("error should list registered types: %v", err)
	}
}

func TestReplaceStaticPlaceholders(t *testing.T) {
	got := ReplaceStaticPlaceholders("UPDATE c SET v = ? WHERE k = ?", PlaceholderPrefixForDBType["pgsql"])
	if got != "UPDATE c SET v = $1 WHERE k = $2" {
		t.Errorf("got %q", got)
	}
	if s := "SELECT ?"; ReplaceStaticPlaceholders(s, '?') != s {
		t.Error("mysql placeholders should stay")
	}
}
