package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrInvalidAccessCode  ErrCode = "INVALID_ACCESS_CODE"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrStudentAccessOnly ErrCode = "STUDENT_ACCESS_ONLY"
	ErrAdminAccessOnly   ErrCode = "ADMIN_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Schedule ──────────────────────────────────────────────────────
	ErrExamNotYetOpen     ErrCode = "EXAM_NOT_YET_OPEN"
	ErrExamClosed         ErrCode = "EXAM_CLOSED"
	ErrNoActiveSubject    ErrCode = "NO_ACTIVE_SUBJECT"
	ErrExamNotAvailable   ErrCode = "EXAM_NOT_AVAILABLE"
	ErrExamAlreadyDone    ErrCode = "EXAM_ALREADY_COMPLETED"
	ErrExamNotCompleted   ErrCode = "EXAM_NOT_COMPLETED"
	ErrNoQuestions        ErrCode = "NO_QUESTIONS"
	ErrSessionNotStarted  ErrCode = "SESSION_NOT_STARTED"
	ErrSessionNotActive   ErrCode = "SESSION_NOT_ACTIVE"
	ErrFinishNotRequested ErrCode = "FINISH_NOT_REQUESTED"
	ErrSubmitInProgress   ErrCode = "SUBMIT_IN_PROGRESS"
	ErrSubmitFailed       ErrCode = "SUBMIT_FAILED"

	// ─── Files ─────────────────────────────────────────────────────────
	ErrFileRequired    ErrCode = "FILE_REQUIRED"
	ErrUnsupportedFile ErrCode = "UNSUPPORTED_FILE_TYPE"
	ErrFileTooLarge    ErrCode = "FILE_TOO_LARGE"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Email atau kata sandi salah."
	case ErrInvalidAccessCode:
		return "Kode akses tidak ditemukan."
	case ErrTokenRequired:
		return "Token autentikasi diperlukan."
	case ErrTokenInvalid:
		return "Token autentikasi tidak valid."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrStudentAccessOnly:
		return "Sumber daya ini terbatas untuk siswa."
	case ErrAdminAccessOnly:
		return "Sumber daya ini terbatas untuk administrator."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validasi gagal. Silakan periksa masukan Anda."
	case ErrInvalidPayload:
		return "Payload permintaan tidak valid."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Sumber daya tidak ditemukan."
	case ErrConflict:
		return "Sumber daya sudah ada."

	// ─── Schedule ──────────────────────────────────────────────────────
	case ErrExamNotYetOpen:
		return "Ujian belum dibuka."
	case ErrExamClosed:
		return "Ujian telah berakhir."
	case ErrNoActiveSubject:
		return "Tidak ada sesi ujian mata pelajaran yang aktif saat ini."
	case ErrExamNotAvailable:
		return "Ujian ini saat ini tidak tersedia."
	case ErrExamAlreadyDone:
		return "Kamu sudah menyelesaikan ujian ini."
	case ErrExamNotCompleted:
		return "Ujian belum diselesaikan."
	case ErrNoQuestions:
		return "Belum ada soal untuk sesi ujian ini."
	case ErrSessionNotStarted:
		return "Sesi ujian belum dimulai."
	case ErrSessionNotActive:
		return "Sesi ujian tidak aktif."
	case ErrFinishNotRequested:
		return "Konfirmasi selesai belum diminta."
	case ErrSubmitInProgress:
		return "Jawaban sedang dikirim."
	case ErrSubmitFailed:
		return "Terjadi kesalahan saat menyimpan jawaban. Silakan coba lagi."

	// ─── Files ─────────────────────────────────────────────────────────
	case ErrFileRequired:
		return "Unggah file diperlukan."
	case ErrUnsupportedFile:
		return "Jenis file tidak didukung."
	case ErrFileTooLarge:
		return "Ukuran file terlalu besar."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Terlalu banyak permintaan. Silakan coba lagi nanti."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "Terjadi kesalahan server internal."
	default:
		return "Terjadi kesalahan yang tidak terduga."
	}
}
