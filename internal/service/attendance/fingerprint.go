package attendance

import (
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"strconv"

	"github.com/pinky-hr/attendance-engine/internal/domain/attendance"
)

// Fingerprint identifies the punch set a record was computed from. It
// ignores order and the Kept flag.
func Fingerprint(punches []attendance.StoredPunch) string {
	keys := make([]string, 0, len(punches))
	for _, p := range punches {
		keys = append(keys, strconv.FormatInt(p.Timestamp.UnixNano(), 10)+"|"+p.DeviceID+"|"+p.Kind+"|"+p.Method)
	}
	slices.Sort(keys)

	h := sha256.New()
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
