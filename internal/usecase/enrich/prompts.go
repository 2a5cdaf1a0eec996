package enrich

// Prompts holds the system message and user instruction for each artifact.
// The user message is the instruction followed by a newline and the content.
type Prompts struct {
	SummarySystem       string `yaml:"summary_system"`
	SummaryInstruction  string `yaml:"summary_instruction"`
	KeywordsSystem      string `yaml:"keywords_system"`
	KeywordsInstruction string `yaml:"keywords_instruction"`
}

// DefaultPrompts constrain the model to return only the artifact, in Chinese.
func DefaultPrompts() Prompts {
	return Prompts{
		SummarySystem:       "你是一个专业的中文摘要助手，只需返回摘要，别的任何说明都不返回。",
		SummaryInstruction:  "请用中文对以下内容生成简明摘要,只需返回摘要，别的任何说明都不返回：",
		KeywordsSystem:      "你是一个专业的中文关键词助手，只会返回关键词，别的任何说明都不返回。",
		KeywordsInstruction: "请用中文对以下内容生成关键词,只需返回关键词，别的任何说明都不返回：",
	}
}

// withDefaults fills blank prompts from DefaultPrompts.
func (p Prompts) withDefaults() Prompts {
	d := DefaultPrompts()
	if p.SummarySystem == "" {
		p.SummarySystem = d.SummarySystem
	}
	if p.SummaryInstruction == "" {
		p.SummaryInstruction = d.SummaryInstruction
	}
	if p.KeywordsSystem == "" {
		p.KeywordsSystem = d.KeywordsSystem
	}
	if p.KeywordsInstruction == "" {
		p.KeywordsInstruction = d.KeywordsInstruction
	}
	return p
}

type artifact int

const (
	summary artifact = iota
	keywords
)

func (a artifact) String() string {
	if a == keywords {
		return "keywords"
	}
	return "summary"
}

// failurePrefix precedes the cause in an artifact that could not be generated.
func (a artifact) failurePrefix() string {
	if a == keywords {
		return "关键词生成失败: "
	}
	return "摘要生成失败: "
}

func (p Prompts) forArtifact(a artifact) (system, instruction string) {
	if a == keywords {
		return p.KeywordsSystem, p.KeywordsInstruction
	}
	return p.SummarySystem, p.SummaryInstruction
}
