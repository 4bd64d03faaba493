// SPDX-License-Identifier: MPL-2.0

package dbcc

import (
	"regexp"
	"strconv"
	"strings"
)

// CheckResult is one normalized TABLERESULTS row. The raw shape differs
// across server versions (2012/2014 report a narrower column set and
// name the object column "Id"; 2016+ added DbFragId and renamed the
// object and index columns), so rows are mapped by column name with
// per-version aliases rather than by position.
type CheckResult struct {
	Error       int
	Level       int
	State       int
	MessageText string
	RepairLevel string
	Status      int
	DbID        int
	ObjectID    int64
	IndexID     int
	PartitionID int64
	AllocUnitID int64
	File        int
	Page        int
	Slot        int
	RefFile     int
	RefPage     int
	RefSlot     int
	Allocation  int
}

// columnAliases maps normalized field names to the column names seen
// across server versions, first match wins. Names are compared
// case-insensitively.
var columnAliases = map[string][]string{
	"error":       {"Error"},
	"level":       {"Level"},
	"state":       {"State"},
	"messagetext": {"MessageText", "Message"},
	"repairlevel": {"RepairLevel", "Repair Level"},
	"status":      {"Status"},
	"dbid":        {"DbId", "DbID"},
	"objectid":    {"ObjectId", "Id", "ObjectID"},
	"indexid":     {"IndexId", "IndId", "IndexID"},
	"partitionid": {"PartitionId", "PartitionID"},
	"allocunitid": {"AllocUnitId", "AllocUnitID"},
	"file":        {"File"},
	"page":        {"Page"},
	"slot":        {"Slot"},
	"reffile":     {"RefFile"},
	"refpage":     {"RefPage"},
	"refslot":     {"RefSlot"},
	"allocation":  {"Allocation"},
}

// Normalize maps one raw row onto a CheckResult. columns is the result
// set's column list; values holds the scanned driver values in the same
// order. Columns a given server version does not produce are left zero.
func Normalize(columns []string, values []any) CheckResult {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		index[strings.ToLower(strings.TrimSpace(c))] = i
	}

	at := func(field string) (any, bool) {
		for _, alias := range columnAliases[field] {
			if i, ok := index[strings.ToLower(alias)]; ok && i < len(values) {
				return values[i], true
			}
		}
		return nil, false
	}

	var r CheckResult
	r.Error = asInt(at("error"))
	r.Level = asInt(at("level"))
	r.State = asInt(at("state"))
	r.MessageText = asString(at("messagetext"))
	r.RepairLevel = asString(at("repairlevel"))
	r.Status = asInt(at("status"))
	r.DbID = asInt(at("dbid"))
	r.ObjectID = asInt64(at("objectid"))
	r.IndexID = asInt(at("indexid"))
	r.PartitionID = asInt64(at("partitionid"))
	r.AllocUnitID = asInt64(at("allocunitid"))
	r.File = asInt(at("file"))
	r.Page = asInt(at("page"))
	r.Slot = asInt(at("slot"))
	r.RefFile = asInt(at("reffile"))
	r.RefPage = asInt(at("refpage"))
	r.RefSlot = asInt(at("refslot"))
	r.Allocation = asInt(at("allocation"))
	return r
}

// IsFailure reports whether the row describes a real integrity error
// rather than an informational message. The server reports errors with
// severity level 16 and up.
func (r CheckResult) IsFailure() bool {
	return r.Level >= 16
}

// Summary is the parsed closing message of a CHECKDB run.
type Summary struct {
	Database          string
	AllocationErrors  int
	ConsistencyErrors int
	// Found is true when a summary line was recognized at all.
	Found bool
}

// Clean reports whether the check completed without finding errors.
func (s Summary) Clean() bool {
	return s.Found && s.AllocationErrors == 0 && s.ConsistencyErrors == 0
}

var summaryRe = regexp.MustCompile(
	`CHECKDB found (\d+) allocation errors and (\d+) consistency errors in database '([^']*)'`)

// ParseSummary scans result messages (newest last) for the final
// CHECKDB summary line.
func ParseSummary(messages []string) Summary {
	for i := len(messages) - 1; i >= 0; i-- {
		m := summaryRe.FindStringSubmatch(messages[i])
		if m == nil {
			continue
		}
		alloc, _ := strconv.Atoi(m[1])
		consistency, _ := strconv.Atoi(m[2])
		return Summary{
			Database:          m[3],
			AllocationErrors:  alloc,
			ConsistencyErrors: consistency,
			Found:             true,
		}
	}
	return Summary{}
}

func asInt(v any, ok bool) int {
	return int(asInt64(v, ok))
}

func asInt64(v any, ok bool) int64 {
	if !ok || v == nil {
		return 0
	}
	switch n := v.(type) {
	case int64:
		return n
	case int32:
		return int64(n)
	case int:
		return int64(n)
	case []byte:
		parsed, err := strconv.ParseInt(strings.TrimSpace(string(n)), 10, 64)
		if err != nil {
			return 0
		}
		return parsed
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}

func asString(v any, ok bool) string {
	if !ok || v == nil {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	default:
		return ""
	}
}
