package pipeline

import (
	"fmt"
	"strings"

	"ghostwriter/internal/core"
	"ghostwriter/internal/placeholder"
	"ghostwriter/internal/textutil"
)

const researchSeparator = "\n\n--- リサーチ結果 ---\n\n"

// CombineReference joins the author's reference text with research output.
// A labeled separator is used only when both are present.
func CombineReference(original, research string) string {
	original = strings.TrimSpace(original)
	research = strings.TrimSpace(research)
	switch {
	case original == "":
		return research
	case research == "":
		return original
	default:
		return original + researchSeparator + research
	}
}

func writeInputBlock(prompt *strings.Builder, in core.Input) {
	prompt.WriteString(fmt.Sprintf("テーマ: %s\n", textutil.Sanitize(in.Theme)))
	prompt.WriteString(fmt.Sprintf("ターゲット読者: %s\n", textutil.Sanitize(in.Persona)))
	if in.ExpertPersona != "" {
		prompt.WriteString(fmt.Sprintf("執筆者の専門性: %s\n", textutil.Sanitize(in.ExpertPersona)))
	}
	if in.Tone != "" {
		prompt.WriteString(fmt.Sprintf("トーン: %s\n", textutil.Sanitize(in.Tone)))
	}
}

func buildResearchPrompt(topic string) string {
	var prompt strings.Builder
	prompt.WriteString("以下のトピックについてWeb検索を行い、記事執筆に役立つ最新の事実・統計・事例を日本語で簡潔にまとめてください。\n\n")
	prompt.WriteString(fmt.Sprintf("トピック: %s\n\n", textutil.Sanitize(topic)))
	prompt.WriteString("- 箇条書きで10項目以内\n")
	prompt.WriteString("- 数値や日付は出典の内容に忠実に\n")
	prompt.WriteString("- 推測や意見は含めない\n")
	return prompt.String()
}

func buildOutlinePrompt(in core.Input, reference string, limit int) string {
	var prompt strings.Builder
	prompt.WriteString("あなたはプロの編集者です。次の条件でブログ記事の構成案を3つ作成してください。\n\n")
	writeInputBlock(&prompt, in)
	if reference != "" {
		prompt.WriteString("\n参考情報:\n")
		prompt.WriteString(textutil.Truncate(textutil.Sanitize(reference), limit))
		prompt.WriteString("\n")
	}
	prompt.WriteString("\n要件:\n")
	prompt.WriteString("- 構成案はちょうど3つ、それぞれ切り口を変える\n")
	prompt.WriteString("- 各案に title, introduction, headings(4〜7個) を含める\n")
	prompt.WriteString("- JSON形式 {\"outlines\": [...]} のみで回答する\n")
	return prompt.String()
}

func buildDirectionPrompt(in core.Input) string {
	var prompt strings.Builder
	prompt.WriteString("次の記事にふさわしいビジュアルの方向性を3つ提案してください。\n\n")
	prompt.WriteString(fmt.Sprintf("テーマ: %s\n", textutil.Sanitize(in.Theme)))
	prompt.WriteString(fmt.Sprintf("ターゲット読者: %s\n\n", textutil.Sanitize(in.Persona)))
	prompt.WriteString("各案には style (スタイル名) と palette (primary, text, accent の順に #RRGGBB 形式の色を3つ) を含めてください。\n")
	prompt.WriteString("text の色は白背景で読みやすい濃い色にしてください。\n")
	return prompt.String()
}

func buildDraftSystemInstruction(in core.Input, voice *core.BrandVoice) string {
	var prompt strings.Builder
	prompt.WriteString("あなたは読者の課題解決に徹するプロのライターです。Markdownで記事本文を書いてください。\n\n")

	prompt.WriteString("引用ルール:\n")
	prompt.WriteString("- リンクはGoogle検索で実際に参照したページのURLだけを使う\n")
	prompt.WriteString("- URLを推測・創作しない。確認できないURLにはリンクを付けない\n")
	prompt.WriteString(fmt.Sprintf("- 各見出しの最後に出典がある場合は「%s[タイトル](URL)」の形式で1行ずつ書く\n\n", placeholder.ReferencePrefix))

	prompt.WriteString("文体ルール:\n")
	prompt.WriteString("- 見出しは ## と ### を使う\n")
	prompt.WriteString("- 一文を短く、具体例と数字を入れる\n")
	prompt.WriteString("- 前置きや「いかがでしたか」などの定型句は使わない\n")

	if in.Type == core.ArticlePaid {
		prompt.WriteString("\n有料記事ルール:\n")
		prompt.WriteString(fmt.Sprintf("- 無料部分で課題と結論の概要を示し、具体的な手順やノウハウの前に「%s」を単独の行で1回だけ入れる\n", placeholder.PaidDivider))
		if in.Price > 0 {
			prompt.WriteString(fmt.Sprintf("- 価格は%d円。価格に見合う具体性を有料部分に持たせる\n", in.Price))
		}
		if in.ProductDescription != "" {
			prompt.WriteString(fmt.Sprintf("- 有料部分の内容: %s\n", textutil.Sanitize(in.ProductDescription)))
		}
	}

	if !voice.IsEmpty() {
		prompt.WriteString("\nブランドボイス:\n")
		if voice.Principles != "" {
			prompt.WriteString(textutil.Sanitize(voice.Principles))
			prompt.WriteString("\n")
		}
		if voice.Example != "" {
			prompt.WriteString("文体見本:\n")
			prompt.WriteString(textutil.Sanitize(voice.Example))
			prompt.WriteString("\n")
		}
	}
	return prompt.String()
}

func buildDraftPrompt(in core.Input, outline core.Outline, limit int) string {
	var prompt strings.Builder
	prompt.WriteString("次の構成で記事を執筆してください。\n\n")
	writeInputBlock(&prompt, in)
	prompt.WriteString(fmt.Sprintf("\nタイトル: %s\n", textutil.Sanitize(outline.Title)))
	prompt.WriteString(fmt.Sprintf("導入: %s\n", textutil.Sanitize(outline.Introduction)))
	prompt.WriteString("見出し:\n")
	for _, h := range outline.Headings {
		prompt.WriteString(fmt.Sprintf("- %s\n", textutil.Sanitize(h)))
	}
	if in.ReferenceText != "" {
		prompt.WriteString("\n参考情報:\n")
		prompt.WriteString(textutil.Truncate(textutil.Sanitize(in.ReferenceText), limit))
		prompt.WriteString("\n")
	}
	return prompt.String()
}

// The article body is not sanitized here: the model must return it verbatim.
func buildDecorationPrompt(md string, limit int) string {
	var prompt strings.Builder
	prompt.WriteString("次のMarkdown記事の本文を一切変えずに、読みやすさを高める装飾プレースホルダーを挿入してください。\n\n")
	prompt.WriteString("使用できるプレースホルダー (書式は厳密に守る):\n")
	prompt.WriteString(`- [IMAGE_GENERATE:{"prompt":"英語の画像生成プロンプト","overlayText":"画像に載せる短い日本語"}] 最大2個` + "\n")
	prompt.WriteString(`- [IMAGE_SCREENSHOT:{"instruction":"撮影すべき画面の説明"}] 必要なだけ` + "\n")
	prompt.WriteString(`- [INTERACTIVE_CHART:{"type":"bar|line|pie|doughnut|radar|scatter|bubble","title":"...","data":{"labels":[...],"datasets":[{"label":"...","data":[...]}]}}] 最大2個` + "\n")
	prompt.WriteString("- [BOX:tip|info|warning|quote:タイトル:本文] 任意\n")
	prompt.WriteString("- [SUMMARY:項目1; 項目2; 項目3] 任意\n\n")
	prompt.WriteString("厳守事項:\n")
	prompt.WriteString("- 既存の文章・見出し・リンクは1文字も変えない\n")
	prompt.WriteString(fmt.Sprintf("- 「%s」の行は位置も含めてそのまま残す\n", placeholder.PaidDivider))
	prompt.WriteString(fmt.Sprintf("- 「%s」で始まる行はそのまま残す\n", placeholder.ReferencePrefix))
	prompt.WriteString("- プレースホルダーは段落の間に単独の行で置く\n\n")
	prompt.WriteString("あわせてカバー画像の英語プロンプト (coverImagePrompt) と、カバーに載せる短いタイトル (coverImageOverlay) を返してください。\n\n")
	prompt.WriteString("記事:\n")
	prompt.WriteString(textutil.Truncate(md, limit))
	return prompt.String()
}

// ImagePrompt appends the overlay instruction to an image prompt.
func ImagePrompt(prompt, overlay string) string {
	if strings.TrimSpace(overlay) == "" {
		return prompt
	}
	return fmt.Sprintf("%s\n\nRender the following Japanese text clearly and legibly in the image: \"%s\"", prompt, overlay)
}

func writeArticleBlock(prompt *strings.Builder, title, md string, limit int) {
	if title != "" {
		prompt.WriteString(fmt.Sprintf("タイトル: %s\n\n", textutil.Sanitize(title)))
	}
	prompt.WriteString("記事:\n")
	prompt.WriteString(textutil.Truncate(textutil.Sanitize(placeholder.Strip(md)), limit))
	prompt.WriteString("\n")
}

func buildFAQPrompt(title, md string, limit int) string {
	var prompt strings.Builder
	prompt.WriteString("次の記事を読んだ読者が抱きそうな質問と回答を3〜5個作成してください。回答は記事の内容に基づき、2〜3文で簡潔に。\n\n")
	writeArticleBlock(&prompt, title, md, limit)
	return prompt.String()
}

func buildPerformancePrompt(in core.Input, title, md string, limit int) string {
	var prompt strings.Builder
	prompt.WriteString("あなたはコンテンツマーケティングのアナリストです。次の記事の反響を予測してください。\n\n")
	prompt.WriteString(fmt.Sprintf("ターゲット読者: %s\n", textutil.Sanitize(in.Persona)))
	prompt.WriteString(fmt.Sprintf("記事タイプ: %s\n", in.Type))
	writeArticleBlock(&prompt, title, md, limit)
	prompt.WriteString("\nscore は0〜100、strengths と improvements はそれぞれ3項目以内で答えてください。\n")
	return prompt.String()
}

func buildEnhancementPrompt(title, md string, limit int) string {
	var prompt strings.Builder
	prompt.WriteString("次の記事の拡散用メタデータを作成してください。\n\n")
	writeArticleBlock(&prompt, title, md, limit)
	prompt.WriteString("\n- title_suggestions: クリックしたくなるタイトル案を3つ\n")
	prompt.WriteString("- share_text: SNS用の140字以内の紹介文\n")
	prompt.WriteString("- hashtags: 5個以内、#は付けない\n")
	prompt.WriteString("- meta_description: 120字程度\n")
	return prompt.String()
}

func buildAuditPrompt(a *core.Article, limit int) string {
	var prompt strings.Builder
	prompt.WriteString(fmt.Sprintf("次の記事は %s に公開されました。Google検索で最新情報を確認し、内容が古くなっていないか監査してください。\n\n", a.CreatedAt.Format("2006-01-02")))
	writeArticleBlock(&prompt, a.Title, a.Markdown, limit)
	prompt.WriteString("\n次のJSONのみで回答してください (Markdownのコードブロックは不要):\n")
	prompt.WriteString(`{"is_fresh": true または false, "suggestions": [{"area": "該当箇所", "reason": "古いと判断した理由", "suggestion_text": "差し替え案"}]}` + "\n")
	prompt.WriteString("最新であれば is_fresh を true、suggestions を空配列にしてください。\n")
	return prompt.String()
}

func buildFactCheckPrompt(md string) string {
	var prompt strings.Builder
	prompt.WriteString("次のMarkdown記事に含まれる事実の主張をGoogle検索で検証してください。\n\n")
	prompt.WriteString("次のJSONのみで回答してください (Markdownのコードブロックは不要):\n")
	prompt.WriteString(`{"results": [{"claim": "主張", "verdict": "correct|incorrect|unverifiable", "explanation": "根拠", "correction": "正しい内容"}], "corrected_markdown": "誤りだけを直した記事全文"}` + "\n\n")
	prompt.WriteString("corrected_markdown では誤りのある箇所以外を1文字も変えず、")
	prompt.WriteString(fmt.Sprintf("「%s」の行、「%s」で始まる行、[ ] で囲まれたプレースホルダーをそのまま残してください。\n\n", placeholder.PaidDivider, placeholder.ReferencePrefix))
	prompt.WriteString("記事:\n")
	prompt.WriteString(md)
	return prompt.String()
}

func buildProofreadPrompt(md string) string {
	var prompt strings.Builder
	prompt.WriteString("次のMarkdown記事の誤字脱字、表記ゆれ、不自然な日本語を校正してください。\n\n")
	prompt.WriteString("厳守事項:\n")
	prompt.WriteString("- 内容や構成は変えない\n")
	prompt.WriteString(fmt.Sprintf("- 「%s」の行と「%s」で始まる行はそのまま残す\n", placeholder.PaidDivider, placeholder.ReferencePrefix))
	prompt.WriteString("- [ ] で囲まれたプレースホルダーは1文字も変えない\n")
	prompt.WriteString("- changes には修正内容を短く列挙する\n\n")
	prompt.WriteString("記事:\n")
	prompt.WriteString(md)
	return prompt.String()
}

// VideoPrompt builds the teaser video prompt for an article.
func VideoPrompt(a *core.Article) string {
	var prompt strings.Builder
	prompt.WriteString("A short, cinematic teaser video for a blog article. No text on screen.\n")
	prompt.WriteString(fmt.Sprintf("Article title: %s\n", textutil.Sanitize(a.Title)))
	prompt.WriteString(fmt.Sprintf("Theme: %s\n", textutil.Sanitize(a.Theme)))
	if a.Direction != nil && a.Direction.Style != "" {
		prompt.WriteString(fmt.Sprintf("Visual style: %s\n", textutil.Sanitize(a.Direction.Style)))
	}
	return prompt.String()
}
