package steps

import (
	"bytes"
	"fmt"

	"github.com/livetemplate/newyear/internal/progress"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Titles are the display names of the steps.
var Titles = map[progress.Step]string{
	progress.StepShredder: "抽走霉运",
	progress.StepLetters:  "注入好运",
	progress.StepWishWall: "愿望清单",
	progress.StepWheel:    "幸运转盘",
	progress.StepTree:     "点亮未来",
}

var defaultIntros = map[progress.Step]string{
	progress.StepShredder: "首先让我们**丢掉霉运**，把这些令人讨厌的家伙拖进粉碎机里！",
	progress.StepLetters:  "点亮每一个字母，为新的一年**注入好运**。",
	progress.StepWishWall: "写下你的新年愿望，至少 *三个* 才能解锁幸运转盘。",
	progress.StepWheel:    "转动幸运转盘，看看新年会带来什么惊喜。",
	progress.StepTree:     "依次点亮星星、树冠、树身、树底和礼物，**点亮未来**！",
}

// Info describes one step for clients that render their own views.
type Info struct {
	Step      progress.Step `json:"step"`
	Title     string        `json:"title"`
	IntroHTML string        `json:"introHtml"`
}

// RenderIntros converts the step intros to HTML. overrides replaces the
// built-in markdown of individual steps.
func RenderIntros(overrides map[int]string) ([]Info, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))

	infos := make([]Info, 0, int(progress.LastStep))
	for n := progress.FirstStep; n <= progress.LastStep; n++ {
		src, ok := overrides[int(n)]
		if !ok {
			src = defaultIntros[n]
		}
		var buf bytes.Buffer
		if err := md.Convert([]byte(src), &buf); err != nil {
			return nil, fmt.Errorf("step %d intro: %w", n, err)
		}
		infos = append(infos, Info{Step: n, Title: Titles[n], IntroHTML: buf.String()})
	}
	return infos, nil
}
