package scrape

import "testing"

func TestExtract(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantTitle string
		wantBody  string
	}{
		{
			name:      "タイトルと段落",
			input:     "<html><head><title>  Go News  </title></head><body><p>First.</p><div><p>Second.</p></div></body></html>",
			wantTitle: "Go News",
			wantBody:  "First. Second.",
		},
		{
			name:      "titleなし",
			input:     "<html><body><p>Only body</p></body></html>",
			wantTitle: NoTitle,
			wantBody:  "Only body",
		},
		{
			name:      "空のtitle",
			input:     "<html><head><title>   </title></head><body></body></html>",
			wantTitle: NoTitle,
			wantBody:  "",
		},
		{
			name:      "pなし",
			input:     "<html><head><title>T</title></head><body><div>not a paragraph</div></body></html>",
			wantTitle: "T",
			wantBody:  "",
		},
		{
			name:      "段落内のインライン要素",
			input:     "<p>Hello <b>bold</b> <a href='#'>link</a></p>",
			wantTitle: NoTitle,
			wantBody:  "Hello bold link",
		},
		{
			name:      "空入力",
			input:     "",
			wantTitle: NoTitle,
			wantBody:  "",
		},
		{
			name:      "閉じタグのないHTML",
			input:     "<html><body><p>unclosed paragraph",
			wantTitle: NoTitle,
			wantBody:  "unclosed paragraph",
		},
		{
			name:      "最初のtitleのみ使用",
			input:     "<html><head><title>First</title><title>Second</title></head></html>",
			wantTitle: "First",
			wantBody:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract([]byte(tt.input))
			if got.Title != tt.wantTitle {
				t.Errorf("Title = %q, want %q", got.Title, tt.wantTitle)
			}
			if got.Body != tt.wantBody {
				t.Errorf("Body = %q, want %q", got.Body, tt.wantBody)
			}
		})
	}
}

func TestExtract_Deterministic(t *testing.T) {
	input := []byte("<title>T</title><p>a</p><p>b</p>")
	first := Extract(input)
	for i := 0; i < 5; i++ {
		if got := Extract(input); got != first {
			t.Fatalf("Extract is not deterministic: %+v != %+v", got, first)
		}
	}
}
