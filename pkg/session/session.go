package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

// Step はワークフローの段階です。style → script → characters → storyboard の順に一方向に進みます。
type Step int

const (
	StepStyle Step = iota
	StepScript
	StepCharacters
	StepStoryboard
)

func (s Step) String() string {
	switch s {
	case StepStyle:
		return "style"
	case StepScript:
		return "script"
	case StepCharacters:
		return "characters"
	case StepStoryboard:
		return "storyboard"
	default:
		return fmt.Sprintf("Step(%d)", int(s))
	}
}

var (
	// ErrStyleRequired はスタイルの説明が空のまま次の段階へ進もうとした場合に返されます。
	ErrStyleRequired = errors.New("スタイルの説明を入力してください")
	// ErrStoryboardRequired は台本解析の前に次の段階へ進もうとした場合に返されます。
	ErrStoryboardRequired = errors.New("台本を解析して絵コンテを作成してください")
	// ErrNoScenes はシーンが1つもない状態で操作しようとした場合に返されます。
	ErrNoScenes = errors.New("シーンがありません")
	// ErrWrongStep は現在の段階では実行できない操作の場合に返されます。
	ErrWrongStep = errors.New("現在の段階では実行できません")
)

// Session は1人のユーザーの作業状態です。
// ゴルーチン間で共有せず、1つの論理スレッドから操作することを前提にしています。
type Session struct {
	ID      string
	Step    Step
	Project *domain.Project
	Images  *domain.ImageStore
	Current int // 絵コンテ段階で表示中のシーンの位置
}

// New は新しいセッションを生成します。
func New(projectName string) *Session {
	return &Session{
		ID:      uuid.NewString(),
		Step:    StepStyle,
		Project: domain.NewProject(projectName),
		Images:  domain.NewImageStore(),
	}
}

// FromProject は保存済みのプロジェクトから作業を再開するセッションを生成します。
// シーンがあれば絵コンテ段階、台本があれば台本段階から再開します。
func FromProject(p *domain.Project, images *domain.ImageStore) *Session {
	if images == nil {
		images = domain.NewImageStore()
	}
	s := &Session{ID: uuid.NewString(), Project: p, Images: images}
	switch {
	case p.SceneCount() > 0:
		s.Step = StepStoryboard
	case strings.TrimSpace(p.Style) != "":
		s.Step = StepScript
	default:
		s.Step = StepStyle
	}
	return s
}

// Advance は次の段階へ進みます。各段階の入力が揃っていない場合はエラーを返し、段階は変わりません。
func (s *Session) Advance() error {
	switch s.Step {
	case StepStyle:
		if strings.TrimSpace(s.Project.Style) == "" {
			return ErrStyleRequired
		}
	case StepScript:
		if s.Project.SceneCount() == 0 {
			return ErrStoryboardRequired
		}
	case StepCharacters:
		if s.Project.SceneCount() == 0 {
			return ErrNoScenes
		}
		s.Current = 0
	case StepStoryboard:
		return fmt.Errorf("%w: 最後の段階です", ErrWrongStep)
	}
	s.Step++
	return nil
}

// Back は1つ前の段階へ戻ります。入力した内容は保持されます。
func (s *Session) Back() bool {
	if s.Step == StepStyle {
		return false
	}
	s.Step--
	return true
}

// Reset はプロジェクト名を残してすべての状態を初期化します。
func (s *Session) Reset() {
	name := s.Project.Name
	s.Step = StepStyle
	s.Project = domain.NewProject(name)
	s.Images = domain.NewImageStore()
	s.Current = 0
}

// ApplyBreakdown は台本解析の結果を反映し、生成済みの画像を破棄します。
func (s *Session) ApplyBreakdown(b domain.Breakdown) {
	s.Project.ApplyBreakdown(b)
	s.Images = domain.NewImageStore()
	s.Current = 0
}
