package agent

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/log"

	"marquee/pkg/inference"
	"marquee/pkg/schema"
	"marquee/pkg/utils"
)

// historyWindow bounds how many trailing messages are embedded in each prompt.
const historyWindow = 5

// backKeywords trigger backward navigation when present anywhere in the
// user's message, checked before any stage logic or network call.
var backKeywords = []string{
	"返回上一步",
	"上一步",
	"返回",
	"重新开始",
	"重来",
	"go back",
	"start over",
}

// System is the conversation orchestrator: a four-stage state machine that
// drives the inference client per stage and reports new messages and the
// active agent name through its callbacks.
//
// A System is not safe for concurrent turns; the caller serializes calls to
// ProcessUserMessage.
type System struct {
	inf             inference.Inferencer
	history         []schema.Message
	stack           []Stage
	profile         string
	demand          string
	recommendations string

	onMessages func([]schema.Message)
	onAgent    func(string)
}

// New creates an orchestrator in the profiler stage. Either callback may be nil.
func New(inf inference.Inferencer, onMessages func([]schema.Message), onAgent func(string)) *System {
	return &System{
		inf:        inf,
		stack:      []Stage{StageProfiler},
		onMessages: onMessages,
		onAgent:    onAgent,
	}
}

// Stage returns the current stage, always the top of the stage stack.
func (s *System) Stage() Stage {
	return s.stack[len(s.stack)-1]
}

// SetHistory replaces the working conversation history with a snapshot of msgs.
func (s *System) SetHistory(msgs []schema.Message) {
	s.history = slices.Clone(msgs)
}

// Reset returns the orchestrator to its initial state, dropping all extracted
// data and the stage stack. History is untouched.
func (s *System) Reset() {
	s.stack = []Stage{StageProfiler}
	s.profile = ""
	s.demand = ""
	s.recommendations = ""
}

// ProcessUserMessage runs one turn for the given user input. On failure the
// stage stack is rolled back to where this turn started and exactly one
// system message has been emitted, so resubmitting the same input retries
// the whole turn.
func (s *System) ProcessUserMessage(ctx context.Context, text string) error {
	if utils.StringContains(text, false, backKeywords...) {
		s.goBack()
		return nil
	}

	depth := len(s.stack)
	stage := s.Stage()
	s.notifyAgent(stage)

	raw, err := s.generate(ctx, stage, text)
	if err != nil {
		return s.fail(depth, err)
	}

	switch stage {
	case StageProfiler:
		if reply, payload, ok := SplitMarker(raw, MarkerProfileReady); ok {
			s.profile = payload
			s.push(StageSpecialist)
			s.emit(schema.NewMessage(schema.RoleAgent, reply, stage.DisplayName()))
			log.Info("profile locked", "profile", utils.LimitStr(payload, 120))
			return nil
		}
	case StageSpecialist:
		if reply, payload, ok := SplitMarker(raw, MarkerDemandLocked); ok {
			s.demand = payload
			s.emit(schema.NewMessage(schema.RoleAgent, reply, stage.DisplayName()))
			log.Info("demand locked", "demand", utils.LimitStr(payload, 120))
			return s.critiqueAndPresent(ctx, text, depth)
		}
	}

	s.emit(schema.NewMessage(schema.RoleAgent, strings.TrimSpace(raw), stage.DisplayName()))
	return nil
}

// critiqueAndPresent runs the transient critic stage and then the host stage
// within the same turn. The critic's output is stored, never shown. A failure
// in either generation rolls the stack back to depth: the critic never awaits
// user input, so the machine must not be left parked on it.
func (s *System) critiqueAndPresent(ctx context.Context, text string, depth int) error {
	s.push(StageCritic)
	s.notifyAgent(StageCritic)
	picks, err := s.generate(ctx, StageCritic, text)
	if err != nil {
		return s.fail(depth, err)
	}
	s.recommendations = strings.TrimSpace(picks)

	s.push(StageHost)
	s.notifyAgent(StageHost)
	presented, err := s.generate(ctx, StageHost, text)
	if err != nil {
		return s.fail(depth, err)
	}
	s.emit(schema.NewMessage(schema.RoleAgent, strings.TrimSpace(presented), StageHost.DisplayName()))
	return nil
}

func (s *System) goBack() {
	if len(s.stack) <= 1 {
		s.emit(schema.NewMessage(schema.RoleAgent,
			"我们已经在第一步啦，没有更早的步骤可以返回了。继续聊聊你的观影喜好吧～",
			s.Stage().DisplayName()))
		return
	}

	from := s.Stage()
	s.stack = s.stack[:len(s.stack)-1]
	target := s.Stage()

	switch target {
	case StageProfiler:
		s.profile = ""
		s.demand = ""
		s.recommendations = ""
	case StageSpecialist:
		s.demand = ""
		s.recommendations = ""
	}

	log.Info("backward navigation", "from", from, "to", target)
	s.emit(schema.NewMessage(schema.RoleAgent, backMessage(target), target.DisplayName()))
}

func backMessage(target Stage) string {
	switch target {
	case StageProfiler:
		return "好的，我们回到最开始，重新聊聊你的观影喜好。之前记录的画像和需求已经清空。"
	case StageSpecialist:
		return "好的，回到需求这一步。之前锁定的需求和推荐已经清空，这次想看点什么？"
	case StageCritic:
		return "好的，回到评审环节，我们重新斟酌一下候选影片。"
	case StageHost:
		return "好的，回到推荐环节，清单保持不变，请继续。"
	}
	return "好的，我们回到上一步。"
}

func (s *System) generate(ctx context.Context, stage Stage, input string) (string, error) {
	return s.inf.Infer(ctx, stagePrompts[stage], s.buildPrompt(stage, input))
}

func (s *System) buildPrompt(stage Stage, input string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "用户本轮输入：%s\n\n最近对话：\n%s\n", input, s.historyLines())
	switch stage {
	case StageSpecialist:
		fmt.Fprintf(&b, "\n已收集的观影画像：%s\n", s.profile)
	case StageCritic:
		fmt.Fprintf(&b, "\n已收集的观影画像：%s\n明确的观影需求：%s\n", s.profile, s.demand)
	case StageHost:
		fmt.Fprintf(&b, "\n候选推荐清单：\n%s\n\n已收集的观影画像：%s\n明确的观影需求：%s\n", s.recommendations, s.profile, s.demand)
	}
	return b.String()
}

func (s *System) historyLines() string {
	start := max(0, len(s.history)-historyWindow)
	var b strings.Builder
	for _, m := range s.history[start:] {
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
	}
	return strings.TrimRight(b.String(), "\n")
}

// fail rolls the stage stack back to depth, surfaces the generation failure
// as a system message, then re-raises it so the caller can react as well.
func (s *System) fail(depth int, err error) error {
	s.stack = s.stack[:depth]
	log.Error("generation failed", "stage", s.Stage(), "error", err)
	s.emit(schema.NewMessage(schema.RoleSystem, "生成回复时出错："+err.Error(), ""))
	return err
}

func (s *System) push(st Stage) {
	s.stack = append(s.stack, st)
}

// emit appends msgs to the working history and reports them to the caller.
func (s *System) emit(msgs ...schema.Message) {
	s.history = append(s.history, msgs...)
	if s.onMessages != nil {
		s.onMessages(msgs)
	}
}

func (s *System) notifyAgent(stage Stage) {
	if s.onAgent != nil {
		s.onAgent(stage.DisplayName())
	}
}
