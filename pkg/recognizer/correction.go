package recognizer

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/go-ego/gse"
	"github.com/mozillazg/go-pinyin"
)

var (
	segOnce   sync.Once
	sharedSeg *gse.Segmenter
	segErr    error
)

// sharedSegmenter 进程内共享一个分词器，词典来自 gse 内嵌的简体中文词库
func sharedSegmenter() (*gse.Segmenter, error) {
	segOnce.Do(func() {
		var seg gse.Segmenter
		seg.Dict = gse.NewDict()
		seg.Init()
		if err := seg.LoadDictEmbed("zh_s"); err != nil {
			segErr = fmt.Errorf("load gse dict: %w", err)
			return
		}
		sharedSeg = &seg
	})
	return sharedSeg, segErr
}

// CorrectorOption 识别文本纠错配置
type CorrectorOption struct {
	// ReplaceWords 错词 -> 正词，精确替换
	ReplaceWords map[string]string `json:"replaceWords"`
	// FuzzyWords 拼音近似即替换成该词，如人名、产品名
	FuzzyWords []string `json:"fuzzyWords"`
}

// Corrector 识别结果纠错。先分词，再对由完整词组成的片段做精确替换和拼音模糊匹配，
// 不会在词的中间截断
type Corrector struct {
	segmenter    *gse.Segmenter
	replaceWords map[string]string
	fuzzy        []fuzzyWord
	// 规则词的最大字数，限制拼接片段的长度
	maxRunes int
}

type fuzzyWord struct {
	word   string
	runes  int
	pinyin []string
}

func NewCorrector(opt CorrectorOption) (*Corrector, error) {
	c := &Corrector{replaceWords: map[string]string{}}
	for k, v := range opt.ReplaceWords {
		if k == "" {
			continue
		}
		c.replaceWords[k] = v
		c.maxRunes = max(c.maxRunes, utf8.RuneCountInString(k))
	}
	for _, w := range opt.FuzzyWords {
		n := utf8.RuneCountInString(w)
		py := toPinyin(w)
		// 只处理纯汉字词
		if n == 0 || len(py) != n {
			continue
		}
		c.fuzzy = append(c.fuzzy, fuzzyWord{word: w, runes: n, pinyin: py})
		c.maxRunes = max(c.maxRunes, n)
	}
	if c.Empty() {
		return c, nil
	}

	seg, err := sharedSegmenter()
	if err != nil {
		return nil, err
	}
	c.segmenter = seg
	return c, nil
}

// Empty 没有任何纠错规则
func (c *Corrector) Empty() bool {
	return len(c.replaceWords) == 0 && len(c.fuzzy) == 0
}

func (c *Corrector) Correct(text string) string {
	if c.Empty() || text == "" {
		return text
	}
	// 不开 HMM，未登录词按单字切开，再由相邻的完整词拼接匹配
	words := c.segmenter.Cut(text, false)

	var sb strings.Builder
	for i := 0; i < len(words); {
		next, out := c.matchAt(words, i)
		sb.WriteString(out)
		i = next
	}
	return sb.String()
}

// matchAt 从第 i 个词开始，优先匹配最长的完整词片段；无匹配时原样输出一个词
func (c *Corrector) matchAt(words []string, i int) (int, string) {
	ends := make([]int, 0, 4)
	runes := 0
	for j := i; j < len(words); j++ {
		runes += utf8.RuneCountInString(words[j])
		if runes > c.maxRunes {
			break
		}
		ends = append(ends, j+1)
	}

	for k := len(ends) - 1; k >= 0; k-- {
		end := ends[k]
		span := strings.Join(words[i:end], "")
		if rw, ok := c.replaceWords[span]; ok {
			return end, rw
		}
		if fw, ok := c.fuzzyMatch(span); ok {
			return end, fw
		}
	}
	return i + 1, words[i]
}

func (c *Corrector) fuzzyMatch(span string) (string, bool) {
	if len(c.fuzzy) == 0 {
		return "", false
	}
	n := utf8.RuneCountInString(span)
	var py []string
	for _, fw := range c.fuzzy {
		if fw.runes != n {
			continue
		}
		if span == fw.word {
			return fw.word, true
		}
		if py == nil {
			py = toPinyin(span)
		}
		if len(py) == n && similarPinyin(py, fw.pinyin) {
			return fw.word, true
		}
	}
	return "", false
}

type correctingRecognizer struct {
	inner     Recognizer
	corrector *Corrector
}

// WithCorrection 识别成功后对文本纠错，规则为空时原样返回 r
func WithCorrection(r Recognizer, c *Corrector) Recognizer {
	if c == nil || c.Empty() {
		return r
	}
	return &correctingRecognizer{inner: r, corrector: c}
}

func (r *correctingRecognizer) Vendor() Vendor {
	return r.inner.Vendor()
}

func (r *correctingRecognizer) Recognize(ctx context.Context, wav []byte) (*Result, error) {
	res, err := r.inner.Recognize(ctx, wav)
	if err != nil || res == nil {
		return res, err
	}
	res.Text = r.corrector.Correct(res.Text)
	return res, nil
}

var pinyinArgs = func() pinyin.Args {
	args := pinyin.NewArgs()
	args.Style = pinyin.Normal
	return args
}()

func toPinyin(s string) []string {
	pys := pinyin.Pinyin(s, pinyinArgs)
	res := make([]string, 0, len(pys))
	for _, p := range pys {
		if len(p) > 0 {
			res = append(res, p[0])
		}
	}
	return res
}

var shengmuSet = []string{
	"zh", "ch", "sh",
	"b", "p", "m", "f",
	"d", "t", "n", "l",
	"g", "k", "h",
	"j", "q", "x", "r",
	"z", "c", "s",
	"y", "w",
}

// fuzzyMap 平翘舌、前后鼻音等常见混淆
var fuzzyMap = map[string]string{
	"s": "sh", "sh": "s",
	"c": "ch", "ch": "c",
	"z": "zh", "zh": "z",
	"l": "n", "n": "l",
	"f": "h", "h": "f",
	"r":  "l",
	"an": "ang", "ang": "an",
	"en": "eng", "eng": "en",
	"in": "ing", "ing": "in",
	"ian": "iang", "iang": "ian",
	"uan": "uang", "uang": "uan",
}

func similarPinyin(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		sm1, ym1 := splitShengmuYunmu(a[i])
		sm2, ym2 := splitShengmuYunmu(b[i])
		if !fuzzyEqual(sm1, sm2) || !fuzzyEqual(ym1, ym2) {
			return false
		}
	}
	return true
}

func fuzzyEqual(x, y string) bool {
	return x == y || fuzzyMap[x] == y || fuzzyMap[y] == x
}

// e.g: "long" -> ("l", "ong"), "ai" -> ("", "ai")
func splitShengmuYunmu(py string) (string, string) {
	for _, sm := range shengmuSet {
		if strings.HasPrefix(py, sm) {
			return sm, py[len(sm):]
		}
	}
	return "", py
}
