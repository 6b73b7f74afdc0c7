package service

import "strings"

// 关键词兜底模板：确定性、无副作用，保证生成结果永不为空。
// 匹配大小写不敏感的子串，未命中任何类别时使用通用四步模板。

var cleaningSteps = []string{
	"Pick up 5 things and put them where they belong",
	"Clear one surface completely",
	"Gather any trash into a bag",
	"Take dishes or cups back to the kitchen",
	"Wipe down the surface you cleared",
	"Step back and enjoy the one clean spot you made",
}

var writingSteps = []string{
	"Open a blank document and write the title",
	"Write one sentence about your topic",
	"Jot down 3 rough bullet points",
	"Expand one bullet into a short paragraph",
	"Read it back once without editing",
	"Save the file and note where to pick up next",
}

var studySteps = []string{
	"Gather your materials in one place",
	"Set a timer for 10 minutes",
	"Skim the section headings first",
	"Read one page or slide closely",
	"Write down one thing you just learned",
	"Mark where to continue next time",
}

var genericSteps = []string{
	"Take a deep breath and prepare",
	"Break down the main task",
	"Start with the first small step",
	"Continue with steady progress",
}

var fallbackKeywords = []struct {
	words []string
	steps []string
}{
	{words: []string{"clean", "tidy", "organize", "declutter"}, steps: cleaningSteps},
	{words: []string{"write", "essay", "report", "draft"}, steps: writingSteps},
	{words: []string{"study", "learn", "read", "exam"}, steps: studySteps},
}

// fallbackSteps 根据任务描述中的关键词选择模板，返回列表的副本。
func fallbackSteps(taskText string) []string {
	lowered := strings.ToLower(taskText)

	for _, entry := range fallbackKeywords {
		for _, word := range entry.words {
			if strings.Contains(lowered, word) {
				return append([]string(nil), entry.steps...)
			}
		}
	}

	return append([]string(nil), genericSteps...)
}
