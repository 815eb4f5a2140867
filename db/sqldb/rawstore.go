package sqldb

import (
	"fmt"
	"io/fs"
	"log"
	"path"
	"strings"
	"sync"
)

// RawStore keeps raw SQL statements by "<group>.<name>" for one dialect
type RawStore struct {
	mu    sync.RWMutex
	stmts map[string]string
}

func NewRawStore() *RawStore {
	return &RawStore{stmts: make(map[string]string)}
}

func (s *RawStore) Set(key string, rawStmt string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stmts[key] = rawStmt
}

func (s *RawStore) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stmt, exists := s.stmts[key]
	return stmt, exists
}

// MustGet is for statements loaded at startup. A miss is a programming error.
func (s *RawStore) MustGet(key string) string {
	stmt, ok := s.Get(key)
	if !ok {
		panic(fmt.Sprintf("sqldb: raw statement %q not loaded", key))
	}
	return stmt
}

type GroupedStmtKey struct {
	Group    string
	StmtName string
}

func (k GroupedStmtKey) String() string {
	return k.Group + "." + k.StmtName
}

// LoadGroup reads every file under dir of fsys into the store as group statements.
// `name.<dialect>` is used as-is and wins over `name.sql`.
// `name.sql` is standard SQL with `?` placeholders, converted for the dialect.
func (s *RawStore) LoadGroup(fsys fs.FS, dir string, group string, dialect string) error {
	files, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return fmt.Errorf("failed to read embedded `%s` dir. %w", dir, err)
	}
	prefix := PlaceholderPrefixForDBType[dialect]
	stmtCnt := 0
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		filename := f.Name()
		ext := path.Ext(filename)
		name := strings.TrimSuffix(filename, ext)
		ext = strings.TrimPrefix(ext, ".")
		data, err := fs.ReadFile(fsys, path.Join(dir, filename))
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", filename, err)
		}
		key := GroupedStmtKey{Group: group, StmtName: name}.String()
		switch ext {
		case dialect:
			// exact matching file extension -> use it as-is for dialects
			s.Set(key, string(data))
			stmtCnt++
		case "sql":
			if !hasDialectFile(files, name, dialect) {
				s.Set(key, ReplaceStaticPlaceholders(string(data), prefix))
				stmtCnt++
			}
		}
	}
	log.Printf("[INFO][%s] %d sql raw stmts loaded for group %q", dialect, stmtCnt, group)
	return nil
}

func hasDialectFile(files []fs.DirEntry, name string, dialect string) bool {
	for _, f := range files {
		if f.Name() == name+"."+dialect {
			return true
		}
	}
	return false
}
