package payment

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const randomSuffixLen = 9

// NewReference builds a gateway reference of the form <prefix>_<unix-millis>_<9 random chars>.
func NewReference(prefix string, now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:randomSuffixLen]
	return prefix + "_" + strconv.FormatInt(now.UnixMilli(), 10) + "_" + suffix
}
