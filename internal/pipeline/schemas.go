package pipeline

import "google.golang.org/genai"

func stringSchema(description string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeString, Description: description}
}

func stringArraySchema(description string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeArray, Description: description, Items: &genai.Schema{Type: genai.TypeString}}
}

func outlineSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"outlines": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"title":        stringSchema("記事タイトル"),
						"introduction": stringSchema("導入文の要旨"),
						"headings":     stringArraySchema("見出しの一覧"),
					},
					Required: []string{"title", "introduction", "headings"},
				},
			},
		},
		Required: []string{"outlines"},
	}
}

func directionSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"directions": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"style":   stringSchema("スタイル名"),
						"palette": stringArraySchema("primary, text, accent の順の16進カラーコード3つ"),
					},
					Required: []string{"style", "palette"},
				},
			},
		},
		Required: []string{"directions"},
	}
}

func decorationSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"decoratedMarkdown": stringSchema("プレースホルダーを挿入したMarkdown全文"),
			"coverImagePrompt":  stringSchema("カバー画像の生成プロンプト"),
			"coverImageOverlay": stringSchema("カバー画像に描画する短いテキスト"),
		},
		Required: []string{"decoratedMarkdown", "coverImagePrompt", "coverImageOverlay"},
	}
}

func faqSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"faqs": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"question": stringSchema("質問"),
						"answer":   stringSchema("回答"),
					},
					Required: []string{"question", "answer"},
				},
			},
		},
		Required: []string{"faqs"},
	}
}

func performanceSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"score":           {Type: genai.TypeInteger, Description: "0から100の予測スコア"},
			"summary":         stringSchema("総評"),
			"strengths":       stringArraySchema("強み"),
			"improvements":    stringArraySchema("改善点"),
			"predicted_views": {Type: genai.TypeInteger, Description: "予測閲覧数"},
		},
		Required: []string{"score", "summary", "strengths", "improvements"},
	}
}

func enhancementSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"title_suggestions": stringArraySchema("タイトル案"),
			"share_text":        stringSchema("SNS共有文"),
			"hashtags":          stringArraySchema("#を付けないハッシュタグ"),
			"meta_description":  stringSchema("120字程度のメタディスクリプション"),
		},
		Required: []string{"title_suggestions", "share_text", "hashtags", "meta_description"},
	}
}

func proofreadSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"corrected_markdown": stringSchema("校正後のMarkdown全文"),
			"changes":            stringArraySchema("修正内容の一覧"),
		},
		Required: []string{"corrected_markdown", "changes"},
	}
}
