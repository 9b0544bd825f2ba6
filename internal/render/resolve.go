package render

import (
	"encoding/base64"
	"fmt"
	"regexp"

	"ghostwriter/internal/core"
	"ghostwriter/internal/placeholder"
)

// ImageErrorTile is shown for failed, missing or undecodable image entries.
const ImageErrorTile = `<div class="image-error">画像を生成できませんでした</div>`

var placeholderElement = regexp.MustCompile(`<div class="image-placeholder" data-key="([A-Za-z0-9_-]*)"></div>`)

// Resolve fills keyed placeholder elements from the image map. Unknown keys
// and error entries become an error tile.
func Resolve(markup string, images map[string]core.ImageAsset) string {
	return placeholderElement.ReplaceAllStringFunc(markup, func(el string) string {
		sub := placeholderElement.FindStringSubmatch(el)
		raw, err := placeholder.DecodeKey(sub[1])
		if err != nil {
			return ImageErrorTile
		}
		asset, ok := images[raw]
		if !ok {
			return ImageErrorTile
		}
		return AssetElement(asset, altText(raw))
	})
}

// altText uses the prompt of an IMAGE_GENERATE placeholder.
func altText(raw string) string {
	matches := placeholder.Find(raw, placeholder.TagImage)
	if len(matches) == 0 {
		return ""
	}
	prompt, overlay, err := placeholder.ParseImage(matches[0].Payload)
	if err != nil {
		return ""
	}
	if overlay != "" {
		return overlay
	}
	return prompt
}

// AssetElement renders one image map entry.
func AssetElement(asset core.ImageAsset, alt string) string {
	switch asset.Kind {
	case core.AssetImage:
		if !asset.IsImage() {
			return ImageErrorTile
		}
		mime := asset.MIMEType
		if mime == "" {
			mime = "image/png"
		}
		return fmt.Sprintf(`<figure class="article-image"><img src="data:%s;base64,%s" alt="%s"></figure>`,
			textEscaper.Replace(mime), base64.StdEncoding.EncodeToString(asset.Data), textEscaper.Replace(alt))
	case core.AssetScreenshot:
		return fmt.Sprintf(`<div class="screenshot-instruction"><div class="screenshot-label">📸 スクリーンショット</div><p>%s</p></div>`,
			textEscaper.Replace(asset.Instruction))
	default:
		return ImageErrorTile
	}
}
