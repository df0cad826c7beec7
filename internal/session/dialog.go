package session

import (
	"fmt"
	"strconv"
	"strings"
)

// Severity tells the presentation layer how to style a dialog.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
)

// Dialog is presentation-neutral content produced by the controller.
type Dialog struct {
	Title    string   `json:"title"`
	Body     string   `json:"body"`
	Severity Severity `json:"severity"`
	// Unanswered holds 1-based question numbers, present only on the
	// incomplete finish confirmation.
	Unanswered []int `json:"unanswered,omitempty"`
}

// maxListedUnanswered caps how many question numbers the finish dialog names.
const maxListedUnanswered = 5

func lowTimeDialog() Dialog {
	return Dialog{
		Title:    "Waktu Segera Habis!",
		Body:     "Sisa waktu kurang dari 1 menit. Segera periksa dan simpan jawaban Anda.",
		Severity: SeverityWarning,
	}
}

func finishDialog(unanswered []int) Dialog {
	if len(unanswered) == 0 {
		return Dialog{
			Title:    "Konfirmasi Selesai",
			Body:     "Apakah kamu yakin ingin mengakhiri ujian ini sekarang? Jawaban tidak bisa diubah lagi setelah ini.",
			Severity: SeverityInfo,
		}
	}

	listed := unanswered
	if len(listed) > maxListedUnanswered {
		listed = listed[:maxListedUnanswered]
	}
	nums := make([]string, len(listed))
	for i, n := range listed {
		nums[i] = strconv.Itoa(n)
	}
	list := strings.Join(nums, ", ")
	if len(unanswered) > maxListedUnanswered {
		list += "..."
	}

	return Dialog{
		Title:      "Jawaban Belum Lengkap",
		Body:       fmt.Sprintf("Kamu belum menjawab %d soal (No: %s). Yakin ingin selesai? Nilai soal kosong akan 0.", len(unanswered), list),
		Severity:   SeverityWarning,
		Unanswered: unanswered,
	}
}
