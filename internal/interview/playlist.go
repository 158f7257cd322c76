package interview

import (
	"sort"
	"strings"
)

const (
	// Every segment is treated as a fixed 5-second chunk; the target
	// duration must be an integer at least that long.
	segmentDuration = "5.0"
	targetDuration  = "6"
)

// BuildPlaylist converts an attempt's segment list into an HLS playlist
// document. Segments are ordered by UploadedAt ascending (stable, so ties
// keep their append order). The playlist never carries #EXT-X-ENDLIST: it
// is always "live", letting a polling player keep re-fetching it while
// new segments land. UploadedAt is server receipt time, so two racing
// uploads can land in an order that differs from capture chronology;
// that reordering hazard is accepted, not corrected.
//
// The output is a deterministic function of the segment list: the same
// segments always produce byte-identical bytes.
func BuildPlaylist(segments []Segment) string {
	ordered := append([]Segment(nil), segments...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].UploadedAt < ordered[j].UploadedAt
	})

	var b strings.Builder
	b.WriteString("#EXTM3U\n")
	b.WriteString("#EXT-X-VERSION:3\n")
	b.WriteString("#EXT-X-TARGETDURATION:" + targetDuration + "\n")
	b.WriteString("#EXT-X-MEDIA-SEQUENCE:0\n")

	for _, seg := range ordered {
		b.WriteString("#EXTINF:" + segmentDuration + ",\n")
		b.WriteString(seg.URL)
		b.WriteString("\n")
	}

	return b.String()
}
