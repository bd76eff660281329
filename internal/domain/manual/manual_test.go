package manual

import "testing"

func TestProduct_Paths(t *testing.T) {
	p := Product{Name: "TR-4 Scale", PDFPath: "data/manuals/TR4-User-Manual.pdf"}

	if got := p.BasePath(); got != "data/manuals/TR4-User-Manual" {
		t.Errorf("BasePath() = %q", got)
	}

	tests := []struct {
		m    Modality
		want string
	}{
		{Text, "data/manuals/TR4-User-Manual_faiss"},
		{Tables, "data/manuals/TR4-User-Manual_faiss_tables"},
		{Images, "data/manuals/TR4-User-Manual_faiss_images"},
	}
	for _, tc := range tests {
		t.Run(string(tc.m), func(t *testing.T) {
			if got := p.IndexDir(tc.m); got != tc.want {
				t.Errorf("IndexDir(%s) = %q, want %q", tc.m, got, tc.want)
			}
		})
	}

	if got := p.ImagesDir(); got != "data/manuals/TR4-User-Manual_images" {
		t.Errorf("ImagesDir() = %q", got)
	}
}

func TestProduct_BasePathWithoutExtension(t *testing.T) {
	p := Product{PDFPath: "manuals/ART-EN"}
	if got := p.BasePath(); got != "manuals/ART-EN" {
		t.Errorf("BasePath() = %q", got)
	}
}

func TestProduct_Validate(t *testing.T) {
	tests := []struct {
		name    string
		p       Product
		wantErr bool
	}{
		{"valid", Product{Name: "ART Scale", PDFPath: "a.pdf"}, false},
		{"missing name", Product{PDFPath: "a.pdf"}, true},
		{"blank name", Product{Name: "  ", PDFPath: "a.pdf"}, true},
		{"missing path", Product{Name: "ART Scale"}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.p.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"TR-4 Scale":                   "tr-4-scale",
		"AWS Aircraft Weighing System": "aws-aircraft-weighing-system",
		"LCA_B Load Cell":              "lca-b-load-cell",
		" PWI ":                        "pwi",
		"LaserJet M404/M405 #2?":       "laserjet-m404-m405-2",
		"Unit ../x":                    "unit-x",
		"???":                          "",
	}
	for in, want := range tests {
		if got := Slugify(in); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestItem_HasPage(t *testing.T) {
	for page, want := range map[int]bool{UnknownPage: false, 0: false, 1: true, 12: true} {
		if got := (Item{Page: page}).HasPage(); got != want {
			t.Errorf("Item{Page: %d}.HasPage() = %v, want %v", page, got, want)
		}
	}
}

func TestModalities_Order(t *testing.T) {
	got := Modalities()
	want := []Modality{Text, Tables, Images}
	if len(got) != len(want) {
		t.Fatalf("expected %d modalities, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] || !got[i].IsValid() {
			t.Errorf("modality %d = %q, want %q", i, got[i], want[i])
		}
	}
	if Modality("audio").IsValid() {
		t.Error("unexpected valid modality")
	}
}
