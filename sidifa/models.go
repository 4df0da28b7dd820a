package sidifa

import "time"

// Posyandu is a community health post.
type Posyandu struct {
	ID         string    `json:"id"`
	Nama       string    `json:"nama"`
	Alamat     string    `json:"alamat"`
	Kelurahan  string    `json:"kelurahan"`
	Kecamatan  string    `json:"kecamatan"`
	KetuaKader string    `json:"ketua_kader"`
	Telepon    string    `json:"telepon,omitempty"`
	JumlahIBK  int       `json:"jumlah_ibk"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Verification states of an IBK record.
const (
	StatusMenunggu      = "menunggu"
	StatusTerverifikasi = "terverifikasi"
	StatusDitolak       = "ditolak"
)

// IBK is the record of one individual with special needs.
type IBK struct {
	ID                 string    `json:"id"`
	NIK                string    `json:"nik"`
	Nama               string    `json:"nama"`
	JenisKelamin       string    `json:"jenis_kelamin"`
	TanggalLahir       string    `json:"tanggal_lahir"`
	Alamat             string    `json:"alamat"`
	PosyanduID         string    `json:"posyandu_id"`
	JenisDisabilitas   string    `json:"jenis_disabilitas"`
	TingkatDisabilitas string    `json:"tingkat_disabilitas,omitempty"`
	Status             string    `json:"status"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// AssessmentReport is a psychologist's assessment of an IBK (laporan psikolog).
type AssessmentReport struct {
	ID             string    `json:"id"`
	IBKID          string    `json:"ibk_id"`
	PsikologID     string    `json:"psikolog_id"`
	TanggalAsesmen string    `json:"tanggal_asesmen"`
	Hasil          string    `json:"hasil"`
	Rekomendasi    string    `json:"rekomendasi"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// JobListing is a published job opening (lowongan).
type JobListing struct {
	ID               string    `json:"id"`
	Judul            string    `json:"judul"`
	Perusahaan       string    `json:"perusahaan"`
	Lokasi           string    `json:"lokasi"`
	Deskripsi        string    `json:"deskripsi"`
	JenisDisabilitas []string  `json:"jenis_disabilitas,omitempty"`
	BatasLamaran     time.Time `json:"batas_lamaran"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// DashboardStats is the summary shown on a role's dashboard.
type DashboardStats struct {
	TotalPosyandu      int            `json:"total_posyandu"`
	TotalIBK           int            `json:"total_ibk"`
	IBKTerverifikasi   int            `json:"ibk_terverifikasi"`
	IBKMenunggu        int            `json:"ibk_menunggu"`
	TotalLaporan       int            `json:"total_laporan"`
	LowonganAktif      int            `json:"lowongan_aktif"`
	ByJenisDisabilitas map[string]int `json:"by_jenis_disabilitas,omitempty"`
}

// Page is one page of a list endpoint.
type Page[T any] struct {
	Data  []T   `json:"data"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}

// envelope wraps detail and mutation responses.
type envelope[T any] struct {
	Data T `json:"data"`
}
