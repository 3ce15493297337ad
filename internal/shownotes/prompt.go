package shownotes

import "fmt"

func systemPrompt(lang string) string {
	if lang == "ja" {
		return "あなたはポッドキャストの制作者です。文字起こしから魅力的なタイトルと概要を作成します。"
	}
	return "You are an expert podcast producer who writes compelling episode titles and show notes."
}

func userPrompt(lang, transcript string, maxTitle int) string {
	if lang == "ja" {
		return fmt.Sprintf(`以下はポッドキャストの文字起こしです。

%s

次の形式のMarkdownで回答してください。
1. 1行目に「# 」で始まるタイトル（%d文字以内）
2. 主要な内容をまとめた概要
3. 「## トピック」見出しの下に話題の箇条書き
`, transcript, maxTitle)
	}
	return fmt.Sprintf(`Here is the transcript of a podcast episode:

%s

Reply in Markdown with:
1. A first line starting with "# " holding a catchy, informative title (at most %d characters)
2. A description summarizing the key points
3. A "## Topics" heading followed by a bullet list of the topics discussed
`, transcript, maxTitle)
}
