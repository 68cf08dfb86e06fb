package post

import "strings"

const (
	delimiter = ","
	minFields = 6
)

// Parse converts delimited text into posts. Each line is laid out as
//
//	user, caption..., image, hashtags, liked by, number of likes
//
// The image is located four fields from the end so the caption may itself
// contain commas. Lines with fewer than six fields or a blank user are
// skipped. Parse never fails.
func Parse(text string) []Post {
	lines := splitLines(text)
	if len(lines) > 0 && isHeader(lines[0]) {
		lines = lines[1:]
	}

	posts := make([]Post, 0, len(lines))
	for _, line := range lines {
		p, ok := parseLine(line)
		if !ok {
			continue
		}
		posts = append(posts, p)
	}
	return posts
}

func parseLine(line string) (Post, bool) {
	parts := strings.Split(line, delimiter)
	if len(parts) < minFields {
		return Post{}, false
	}

	imageIdx := len(parts) - 4
	user := strings.TrimSpace(parts[0])
	if user == "" {
		return Post{}, false
	}

	return Post{
		User:          user,
		Caption:       strings.TrimSpace(strings.Join(parts[1:imageIdx], delimiter)),
		Image:         strings.TrimSpace(parts[imageIdx]),
		Hashtags:      NormalizeHashtags(SplitList(parts[imageIdx+1])),
		LikedBy:       SplitList(parts[imageIdx+2]),
		NumberOfLikes: ParseLikes(parts[imageIdx+3]),
	}, true
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

func isHeader(line string) bool {
	return strings.HasPrefix(strings.ToLower(line), "user"+delimiter)
}
