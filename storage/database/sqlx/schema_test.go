package sqlxrepos

import (
	"io/fs"
	"reflect"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appfs "github.com/trezcool/ajira/fs"
)

// The repositories run hand-written SQL against the migration schema; these
// tests keep the two in agreement without a live database.

func TestRowColumnsMatchMigration(t *testing.T) {
	tests := []struct {
		table string
		row   interface{}
	}{
		{"account", accountRow{}},
		{"teacher", teacherRow{}},
		{"admin_user", adminRow{}},
		{"school_account", schoolRow{}},
	}
	for _, tt := range tests {
		t.Run(tt.table, func(t *testing.T) {
			ddl := tableDDL(t, tt.table)
			typ := reflect.TypeOf(tt.row)
			for i := 0; i < typ.NumField(); i++ {
				col := strings.Split(typ.Field(i).Tag.Get("db"), ",")[0]
				if col == "" || col == "-" {
					continue
				}
				assert.Contains(t, ddl, col, "column %q missing from table %q", col, tt.table)
			}
		})
	}
}

func TestUnlockedTeacherColumnsMatchMigration(t *testing.T) {
	ddl := tableDDL(t, "school_unlocked_teacher")
	// columns referenced by loadUnlocked and AddUnlockedTeacher
	for _, col := range []string{"school_id", "teacher_id", "unlocked_at"} {
		assert.Contains(t, ddl, col, "column %q missing from table school_unlocked_teacher", col)
	}
}

// tableDDL extracts the CREATE TABLE column block for the given table from
// the embedded migrations.
func tableDDL(t *testing.T, table string) string {
	t.Helper()

	var sb strings.Builder
	err := fs.WalkDir(appfs.FS, "migrations", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := fs.ReadFile(appfs.FS, path)
		if err != nil {
			return err
		}
		sb.Write(data)
		return nil
	})
	require.NoError(t, err)

	re := regexp.MustCompile(`(?is)CREATE TABLE "?` + regexp.QuoteMeta(table) + `"?\s*\((.*?)\);`)
	m := re.FindStringSubmatch(sb.String())
	require.NotNil(t, m, "table %q not found in migrations", table)
	return m[1]
}
