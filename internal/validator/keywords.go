package validator

import "strings"

// forbiddenKeywords may not appear as bare words anywhere in a statement.
var forbiddenKeywords = toSet(
	"INSERT", "UPDATE", "DELETE", "UPSERT", "MERGE", "REPLACE",
	"DROP", "ALTER", "CREATE", "TRUNCATE", "RENAME",
	"GRANT", "REVOKE",
	"EXEC", "EXECUTE", "CALL", "DO", "PREPARE", "DEALLOCATE", "DECLARE",
	"BEGIN", "COMMIT", "ROLLBACK", "SAVEPOINT",
	"COPY", "ATTACH", "DETACH", "PRAGMA", "VACUUM", "REINDEX", "CLUSTER",
	"LOCK", "UNLOCK", "SET", "RESET", "INTO", "OUTFILE", "DUMPFILE",
	"LOAD", "HANDLER", "SHUTDOWN", "KILL", "LISTEN", "NOTIFY", "UNLISTEN",
	"DISCARD",
)

// functionKeywords are forbidden keywords that are harmless when used as a
// function call, e.g. REPLACE(name, 'a', 'b').
var functionKeywords = toSet("REPLACE")

// forbiddenFunctions are rejected when called.
var forbiddenFunctions = toSet(
	"PG_READ_FILE", "PG_READ_BINARY_FILE", "PG_LS_DIR", "PG_STAT_FILE",
	"PG_TERMINATE_BACKEND", "PG_CANCEL_BACKEND", "PG_RELOAD_CONF",
	"PG_ROTATE_LOGFILE", "SET_CONFIG", "CURRENT_SETTING",
	"LO_IMPORT", "LO_EXPORT", "LO_UNLINK", "LO_CREATE",
	"DBLINK", "DBLINK_EXEC", "DBLINK_CONNECT",
	"SLEEP", "BENCHMARK", "LOAD_FILE", "GET_LOCK", "RELEASE_LOCK",
	"SYS_EXEC", "SYS_EVAL", "XP_CMDSHELL",
)

// forbiddenFunctionPrefixes cover function families.
var forbiddenFunctionPrefixes = []string{"PG_SLEEP", "PG_ADVISORY", "PG_TRY_ADVISORY"}

// forbiddenPackages are Oracle packages rejected when referenced as pkg.member.
var forbiddenPackages = toSet(
	"DBMS_LOCK", "DBMS_PIPE", "DBMS_SESSION", "DBMS_SQL", "DBMS_SCHEDULER",
	"DBMS_JAVA", "DBMS_LDAP", "DBMS_XMLQUERY", "DBMS_AQ",
	"UTL_HTTP", "UTL_FILE", "UTL_TCP", "UTL_SMTP", "UTL_INADDR",
)

var setOperations = toSet("UNION", "INTERSECT", "EXCEPT", "MINUS")

func isForbiddenFunction(name string) bool {
	if forbiddenFunctions[name] {
		return true
	}
	for _, p := range forbiddenFunctionPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

func toSet(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}
