// services/captions.go
package services

import (
	"sort"
	"strings"
)

// Caption tones
const (
	ToneProfessional = "professional"
	ToneCasual       = "casual"
	ToneFun          = "fun"
	ToneLuxurious    = "luxurious"
)

const (
	DefaultHashtagCount = 15
	MinHashtagCount     = 5
	MaxHashtagCount     = 30
)

var baseHashtags = []string{"hairtransformation", "hairgoals", "salonlife", "hairstylist", "hairinspo"}

type tonePhrases struct {
	opener string
	result string
	cta    string
}

var tones = map[string]tonePhrases{
	ToneProfessional: {
		opener: "A refined transformation",
		result: "Precision work with a polished, lasting finish.",
		cta:    "Book your consultation today, link in bio.",
	},
	ToneCasual: {
		opener: "Check out this fresh new look",
		result: "We love how this one turned out!",
		cta:    "Ready for your own refresh? Book through the link in bio.",
	},
	ToneFun: {
		opener: "Glow up alert ✨",
		result: "Obsessed is an understatement 💇‍♀️🔥",
		cta:    "Your turn! Tap the link in bio to book 💕",
	},
	ToneLuxurious: {
		opener: "An exquisite transformation",
		result: "Bespoke artistry, crafted for an effortless, luminous finish.",
		cta:    "Reserve your private appointment, link in bio.",
	},
}

// CaptionRequest describes a transformation to write about
type CaptionRequest struct {
	ServicesPerformed []string
	TechniquesUsed    []string
	ColorFormulas     []map[string]interface{}
	ProductsUsed      []map[string]interface{}
	StartingLevel     string
	AchievedLevel     string
	Tags              []string
	SalonName         string
	StylistName       string

	Tone                string
	IncludeHashtags     bool
	HashtagCount        int
	IncludeCallToAction bool
	MentionProducts     bool
}

// Caption is a generated caption with its hashtags
type Caption struct {
	Caption  string   `json:"caption"`
	Hashtags []string `json:"hashtags"`
	FullText string   `json:"fullText"`
	Tone     string   `json:"tone"`
}

// CaptionGenerator writes captions from templates
type CaptionGenerator struct{}

func NewCaptionGenerator() *CaptionGenerator {
	return &CaptionGenerator{}
}

// IsValidTone reports whether tone has templates
func IsValidTone(tone string) bool {
	_, ok := tones[tone]
	return ok
}

// Generate builds a caption and, when asked, the hashtag list
func (g *CaptionGenerator) Generate(req CaptionRequest) Caption {
	tone := req.Tone
	phrases, ok := tones[tone]
	if !ok {
		tone = ToneProfessional
		phrases = tones[tone]
	}

	var sb strings.Builder
	sb.WriteString(phrases.opener)
	if len(req.ServicesPerformed) > 0 {
		sb.WriteString(": " + joinList(req.ServicesPerformed))
	}
	if len(req.TechniquesUsed) > 0 {
		sb.WriteString(" using " + joinList(req.TechniquesUsed))
	}
	sb.WriteString(".")

	if req.StartingLevel != "" && req.AchievedLevel != "" {
		sb.WriteString(" From level " + req.StartingLevel + " to level " + req.AchievedLevel + ".")
	}
	sb.WriteString(" " + phrases.result)

	if req.MentionProducts {
		if brands := formulaBrands(req.ColorFormulas); len(brands) > 0 {
			sb.WriteString(" Color by " + joinList(brands) + ".")
		}
		if products := productNames(req.ProductsUsed, 3); len(products) > 0 {
			sb.WriteString(" Finished with " + joinList(products) + ".")
		}
	}
	if req.StylistName != "" {
		sb.WriteString(" Styled by " + req.StylistName)
		if req.SalonName != "" {
			sb.WriteString(" at " + req.SalonName)
		}
		sb.WriteString(".")
	} else if req.SalonName != "" {
		sb.WriteString(" Created at " + req.SalonName + ".")
	}
	if req.IncludeCallToAction {
		sb.WriteString(" " + phrases.cta)
	}

	caption := Caption{Caption: sb.String(), Hashtags: []string{}, Tone: tone}
	if req.IncludeHashtags {
		caption.Hashtags = GenerateHashtags(req.ServicesPerformed, req.TechniquesUsed, req.Tags, req.HashtagCount)
	}
	caption.FullText = CombineCaption(caption.Caption, caption.Hashtags)
	return caption
}

// GenerateHashtags derives up to count hashtags, without '#', from the
// services, techniques and tags of a transformation.
func GenerateHashtags(services, techniques, tags []string, count int) []string {
	if count <= 0 {
		count = DefaultHashtagCount
	}
	if count < MinHashtagCount {
		count = MinHashtagCount
	}
	if count > MaxHashtagCount {
		count = MaxHashtagCount
	}

	all := append([]string{}, baseHashtags...)
	for _, s := range services {
		all = append(all, strings.ReplaceAll(strings.ToLower(s), " ", ""))
	}
	for _, t := range techniques {
		all = append(all, strings.NewReplacer(" ", "", "-", "").Replace(strings.ToLower(t)))
	}

	described := append(append([]string{}, services...), tags...)
	if mentions(described, "blonde") {
		all = append(all, "blondehair", "blondebalayage", "blondespecialist")
	}
	if mentions(described, "brunette", "brown") {
		all = append(all, "brunettehair", "brownhair", "brunettebalayage")
	}
	if mentions(described, "red") {
		all = append(all, "redhair", "redhead", "copperhair")
	}
	for _, t := range tags {
		all = append(all, strings.NewReplacer(" ", "", "#", "").Replace(strings.ToLower(t)))
	}

	seen := make(map[string]bool, len(all))
	unique := make([]string, 0, len(all))
	for _, h := range all {
		h = strings.ToLower(strings.TrimSpace(h))
		if h == "" || seen[h] {
			continue
		}
		seen[h] = true
		unique = append(unique, h)
	}

	if len(unique) > count {
		unique = unique[:count]
	}
	return unique
}

// CombineCaption joins a caption and hashtags with the dotted spacer used on
// Instagram to push tags below the fold.
func CombineCaption(caption string, hashtags []string) string {
	if len(hashtags) == 0 {
		return caption
	}
	tags := make([]string, len(hashtags))
	for i, h := range hashtags {
		tags[i] = "#" + strings.TrimPrefix(h, "#")
	}
	return caption + "\n\n.\n.\n.\n" + strings.Join(tags, " ")
}

func mentions(values []string, words ...string) bool {
	for _, v := range values {
		lower := strings.ToLower(v)
		for _, w := range words {
			if strings.Contains(lower, w) {
				return true
			}
		}
	}
	return false
}

func formulaBrands(formulas []map[string]interface{}) []string {
	set := map[string]bool{}
	for _, f := range formulas {
		if b, ok := f["brand"].(string); ok && b != "" {
			set[b] = true
		}
	}
	brands := make([]string, 0, len(set))
	for b := range set {
		brands = append(brands, b)
	}
	sort.Strings(brands)
	return brands
}

func productNames(products []map[string]interface{}, limit int) []string {
	var names []string
	for _, p := range products {
		if n, ok := p["name"].(string); ok && n != "" {
			names = append(names, n)
			if len(names) == limit {
				break
			}
		}
	}
	return names
}

func joinList(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	default:
		return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
	}
}
