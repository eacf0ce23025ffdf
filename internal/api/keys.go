package api

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/plantcare/internal/cryptox"
)

const (
	GuideTTL    = 24 * time.Hour
	IdentifyTTL = time.Hour
)

func GuideKey(id string) string {
	return "guide:id:" + id
}

// GuidesByPlantKey encodes every query parameter so different pages and
// filters never share an entry.
func GuidesByPlantKey(plantID string, f GuideFilter, p Page) string {
	disease := strings.ToLower(strings.TrimSpace(f.DiseaseName))
	if disease == "" {
		disease = "all"
	}
	return fmt.Sprintf("guide:plant:%s:disease:%s:limit:%d:offset:%d", plantID, disease, p.Limit, p.Offset)
}

// GuidesByPlantPattern matches every listing cached for plantID.
func GuidesByPlantPattern(plantID string) string {
	return "guide:plant:" + plantID + ":*"
}

func IdentifyKey(fingerprint string) string {
	return "identify:" + fingerprint
}

// IdentifyFingerprint hashes everything that can change an identification
// outcome for req.
func IdentifyFingerprint(req IdentifyRequest) string {
	coord := func(f *float64) []byte {
		if f == nil {
			return nil
		}
		return []byte(strconv.FormatFloat(*f, 'f', 6, 64))
	}
	return cryptox.Fingerprint(
		[]byte(strings.TrimSpace(req.ImageURL)),
		[]byte(req.ImageBase64),
		coord(req.Latitude),
		coord(req.Longitude),
		[]byte(strconv.FormatBool(req.Health)),
	)
}
