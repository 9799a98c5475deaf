package trivia

// Question is a single fetched trivia question. Options are already
// shuffled; CorrectIndex points at the right answer within them.
type Question struct {
	Category     string
	Difficulty   string
	Text         string
	Options      []string
	CorrectIndex int
}

// CategoryPool is the fixed set categories are sampled from for the
// category poll.
var CategoryPool = []string{
	"General Knowledge", "Science", "History", "Geography", "Sports",
	"Entertainment", "Literature", "Technology", "Art", "Mathematics",
}

// Difficulties is the fixed difficulty poll option set.
var Difficulties = []string{"Easy", "Medium", "Hard"}

// categoryIDs maps category names to the provider's numeric category IDs.
var categoryIDs = map[string]int{
	"General Knowledge": 9,
	"Entertainment":     11,
	"Science":           17,
	"History":           23,
	"Geography":         22,
	"Sports":            21,
	"Literature":        10,
	"Technology":        18,
	"Art":               25,
	"Mathematics":       19,
}

// difficultyParams maps display difficulties to provider query values.
var difficultyParams = map[string]string{
	"Easy":   "easy",
	"Medium": "medium",
	"Hard":   "hard",
}
