// Package player реализует очередь воспроизведения: активный трек, порядок,
// перемешивание и режимы повтора.
//
// Player не выполняет ввода-вывода и не синхронизирован: у состояния
// один владелец (сессия прослушивания), каждая операция делает один переход.
// Ни одна операция не возвращает ошибку, отсутствующие позиции дают no-op.
package player

import (
	"fmt"
	"math/rand/v2"
	"slices"
)

// RepeatMode режим повтора.
type RepeatMode string

const (
	RepeatOff RepeatMode = "off"
	RepeatAll RepeatMode = "all"
	RepeatOne RepeatMode = "one"
)

// ParseRepeatMode разбирает строковое значение режима повтора.
func ParseRepeatMode(s string) (RepeatMode, error) {
	switch m := RepeatMode(s); m {
	case RepeatOff, RepeatAll, RepeatOne:
		return m, nil
	default:
		return "", fmt.Errorf("unknown repeat mode %q", s)
	}
}

// State сериализуемый снимок состояния плеера.
//
// OriginalQueue хранит порядок до перемешивания; при Shuffled == false
// он совпадает с Queue.
type State struct {
	Queue         []string   `json:"queue"`
	OriginalQueue []string   `json:"original_queue"`
	ActiveTrack   string     `json:"active_track,omitempty"`
	Shuffled      bool       `json:"shuffled"`
	RepeatMode    RepeatMode `json:"repeat_mode"`
	UpNext        []string   `json:"up_next"`
}

// Player конечный автомат над State.
type Player struct {
	st  State
	rnd *rand.Rand
}

// Option настраивает Player.
type Option func(*Player)

// WithRand задаёт источник случайности для перемешивания.
func WithRand(r *rand.Rand) Option {
	return func(p *Player) {
		p.rnd = r
	}
}

// New создаёт пустой плеер с выключенным повтором.
func New(opts ...Option) *Player {
	return Restore(State{}, opts...)
}

// Restore восстанавливает плеер из сохранённого снимка.
func Restore(st State, opts ...Option) *Player {
	p := &Player{st: cloneState(st)}
	if p.st.RepeatMode == "" {
		p.st.RepeatMode = RepeatOff
	}
	if p.st.OriginalQueue == nil {
		p.st.OriginalQueue = slices.Clone(p.st.Queue)
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// State возвращает копию текущего состояния.
func (p *Player) State() State {
	return cloneState(p.st)
}

// SetActive делает трек активным без проверки принадлежности очереди.
func (p *Player) SetActive(trackID string) {
	p.st.ActiveTrack = trackID
}

// SetQueue заменяет очередь и её исходный порядок. Активный трек не меняется.
func (p *Player) SetQueue(trackIDs []string) {
	p.st.Queue = slices.Clone(trackIDs)
	p.st.OriginalQueue = slices.Clone(trackIDs)
	if p.st.Queue == nil {
		p.st.Queue = []string{}
		p.st.OriginalQueue = []string{}
	}
}

// Reset очищает очередь, активный трек и список up next.
// Предпочтения пользователя (shuffle, repeat) сохраняются.
func (p *Player) Reset() {
	p.st.Queue = []string{}
	p.st.OriginalQueue = []string{}
	p.st.ActiveTrack = ""
	p.st.UpNext = []string{}
}

// ToggleShuffle перемешивает очередь (Fisher–Yates) или восстанавливает исходный порядок.
func (p *Player) ToggleShuffle() {
	if p.st.Shuffled {
		p.st.Queue = slices.Clone(p.st.OriginalQueue)
		p.st.Shuffled = false
		return
	}

	p.st.OriginalQueue = slices.Clone(p.st.Queue)
	shuffled := slices.Clone(p.st.Queue)
	for i := len(shuffled) - 1; i > 0; i-- {
		j := p.intN(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	p.st.Queue = shuffled
	p.st.Shuffled = true
}

// SetRepeatMode меняет режим повтора, позиция в очереди не затрагивается.
func (p *Player) SetRepeatMode(mode RepeatMode) {
	p.st.RepeatMode = mode
}

// PlayNext переходит к следующему треку. В конце очереди переход на первый
// трек происходит только в режиме RepeatAll. Возвращает true, если активный трек сменился.
func (p *Player) PlayNext() bool {
	i := p.activeIndex()
	if i < 0 {
		return false
	}
	if i+1 < len(p.st.Queue) {
		return p.activate(p.st.Queue[i+1])
	}
	if p.st.RepeatMode == RepeatAll {
		return p.activate(p.st.Queue[0])
	}
	return false
}

// PlayPrevious переходит к предыдущему треку. С первой позиции (или если
// активный трек не найден) всегда переходит на последний, независимо от режима повтора.
func (p *Player) PlayPrevious() bool {
	if len(p.st.Queue) == 0 {
		return false
	}
	i := p.activeIndex()
	if i >= 1 {
		return p.activate(p.st.Queue[i-1])
	}
	return p.activate(p.st.Queue[len(p.st.Queue)-1])
}

// TrackEnded применяет политику окончания трека. В режиме RepeatOne активный
// трек не меняется и возвращается restart = true: аудио нужно проиграть с позиции 0.
func (p *Player) TrackEnded() (restart bool) {
	if p.st.RepeatMode == RepeatOne {
		return p.st.ActiveTrack != ""
	}
	before := p.st.ActiveTrack
	p.PlayNext()
	// очередь из одного трека в RepeatAll переходит сама на себя
	return p.st.RepeatMode == RepeatAll && before != "" && p.st.ActiveTrack == before && p.activeIndex() >= 0
}

// AddToUpNext добавляет трек в список up next, если его там ещё нет.
func (p *Player) AddToUpNext(trackID string) {
	if slices.Contains(p.st.UpNext, trackID) {
		return
	}
	p.st.UpNext = append(p.st.UpNext, trackID)
}

// RemoveFromUpNext удаляет трек из списка up next.
func (p *Player) RemoveFromUpNext(trackID string) {
	p.st.UpNext = slices.DeleteFunc(p.st.UpNext, func(id string) bool { return id == trackID })
}

// ClearUpNext очищает список up next.
func (p *Player) ClearUpNext() {
	p.st.UpNext = []string{}
}

func (p *Player) activeIndex() int {
	if p.st.ActiveTrack == "" || len(p.st.Queue) == 0 {
		return -1
	}
	return slices.Index(p.st.Queue, p.st.ActiveTrack)
}

func (p *Player) activate(trackID string) bool {
	changed := p.st.ActiveTrack != trackID
	p.st.ActiveTrack = trackID
	return changed
}

func (p *Player) intN(n int) int {
	if p.rnd != nil {
		return p.rnd.IntN(n)
	}
	return rand.IntN(n)
}

func cloneState(st State) State {
	out := st
	out.Queue = cloneOrEmpty(st.Queue)
	out.OriginalQueue = slices.Clone(st.OriginalQueue)
	out.UpNext = cloneOrEmpty(st.UpNext)
	return out
}

func cloneOrEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return slices.Clone(s)
}
