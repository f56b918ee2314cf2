package i18n

var messages = map[string]map[Lang]string{
	"headerTitle": {
		ID: "Ensiklopedia AI Peradaban Islam",
		AR: "موسوعة الذكاء الاصطناعي للحضارة الإسلامية",
		EN: "AI Encyclopedia of Islamic Civilization",
	},
	"aiThinking": {
		ID: "AI sedang berpikir... mohon tunggu sejenak.",
		AR: "الذكاء الاصطناعي يفكر... يرجى الانتظار لحظة.",
		EN: "AI is thinking... please wait a moment.",
	},
	"errorFetching": {
		ID: "Terjadi kesalahan saat mengambil jawaban. Silakan coba lagi.",
		AR: "حدث خطأ أثناء جلب الإجابة. يرجى المحاولة مرة أخرى.",
		EN: "An error occurred while fetching the answer. Please try again.",
	},
	"errorApiUnavailable": {
		ID: "AI sementara tidak tersedia. Silakan coba lagi nanti.",
		AR: "الذكاء الاصطناعي غير متاح مؤقتًا. يرجى المحاولة مرة أخرى لاحقًا.",
		EN: "The AI is temporarily unavailable. Please try again later.",
	},
	"errorInvalidSearch": {
		ID: "Harap masukkan pertanyaan Anda.",
		AR: "الرجاء إدخال سؤالك.",
		EN: "Please enter your question.",
	},
	"errorSearchInProgress": {
		ID: "Pencarian lain sedang berjalan. Silakan tunggu sebentar.",
		AR: "هناك بحث آخر قيد التنفيذ. يرجى الانتظار قليلاً.",
		EN: "Another search is in progress. Please wait a moment.",
	},
	"errorTooManySearches": {
		ID: "Terlalu banyak pencarian. Silakan coba lagi nanti.",
		AR: "عدد كبير جداً من عمليات البحث. يرجى المحاولة لاحقاً.",
		EN: "Too many searches. Please try again shortly.",
	},
	"authErrorAllFields": {
		ID: "Harap isi semua kolom.",
		AR: "يرجى ملء جميع الحقول.",
		EN: "Please fill in all fields.",
	},
	"authErrorInvalidEmail": {
		ID: "Format email tidak valid.",
		AR: "صيغة البريد الإلكتروني غير صالحة.",
		EN: "Invalid email format.",
	},
	"authErrorPasswordLength": {
		ID: "Kata sandi minimal harus 6 karakter.",
		AR: "يجب أن لا تقل كلمة المرور عن 6 أحرف.",
		EN: "Password must be at least 6 characters.",
	},
	"authErrorPasswordMatch": {
		ID: "Kata sandi tidak cocok.",
		AR: "كلمتا المرور غير متطابقتين.",
		EN: "Passwords do not match.",
	},
	"authErrorLoginFailed": {
		ID: "Email atau kata sandi salah.",
		AR: "البريد الإلكتروني أو كلمة المرور غير صحيحة.",
		EN: "Invalid email or password.",
	},
	"authErrorRegisterFailed": {
		ID: "Gagal mendaftar. Email mungkin sudah digunakan.",
		AR: "فشل التسجيل. قد يكون البريد الإلكتروني مستخدمًا بالفعل.",
		EN: "Failed to register. The email may already be in use.",
	},
	"authLoginRequired": {
		ID: "Sesi Anda telah berakhir. Silakan masuk kembali.",
		AR: "انتهت جلستك. يرجى تسجيل الدخول مرة أخرى.",
		EN: "Your session has expired. Please log in again.",
	},
	"historyEmptyStateTitle": {
		ID: "Riwayat Anda Kosong",
		AR: "سجلك فارغ",
		EN: "Your History is Empty",
	},
	"historyReopen": {
		ID: "Buka lagi: \"{query}\"",
		AR: "إعادة فتح: \"{query}\"",
		EN: "Reopen: \"{query}\"",
	},
	"historyNoContentToExport": {
		ID: "Tidak ada konten riwayat yang tersimpan secara lokal untuk diekspor.",
		AR: "لا يوجد محتوى محفوظات مخزن محليًا للتصدير.",
		EN: "No history content is stored locally to export.",
	},
	"historyPartialContentToExport": {
		ID: "Beberapa item riwayat tidak memiliki konten lokal dan dilewati dari ekspor.",
		AR: "بعض عناصر السجل لا تحتوي على محتوى محلي وتم تخطيها من التصدير.",
		EN: "Some history items were missing local content and were skipped from the export.",
	},
	"mapNoData": {
		ID: "Tidak ada data peta yang relevan untuk topik ini.",
		AR: "لم يتم العثور على بيانات خريطة ذات صلة لهذا الموضوع.",
		EN: "No relevant map data found for this topic.",
	},
	"map_mecca": {
		ID: "Mekkah: Pusat spiritual Islam",
		AR: "مكة: المركز الروحي للإسلام",
		EN: "Mecca: The spiritual center of Islam",
	},
	"map_medina": {
		ID: "Madinah: Kota Nabi dan ibu kota pertama Islam",
		AR: "المدينة المنورة: مدينة النبي وأول عاصمة إسلامية",
		EN: "Medina: The Prophet's city and the first capital of Islam",
	},
	"map_jerusalem": {
		ID: "Yerusalem: Situs Masjid Al-Aqsa, kiblat pertama",
		AR: "القدس: موقع المسجد الأقصى، القبلة الأولى",
		EN: "Jerusalem: Site of Al-Aqsa Mosque, the first qibla",
	},
	"map_baghdad": {
		ID: "Baghdad: Ibu kota Kekhalifahan Abbasiyah & pusat Rumah Kebijaksanaan",
		AR: "بغداد: عاصمة الخلافة العباسية ومركز بيت الحكمة",
		EN: "Baghdad: Capital of the Abbasid Caliphate & center of the House of Wisdom",
	},
	"map_cairo": {
		ID: "Kairo: Didirikan oleh Fatimiyah, rumah bagi Universitas Al-Azhar",
		AR: "القاهرة: أسسها الفاطميون، موطن جامعة الأزهر",
		EN: "Cairo: Founded by the Fatimids, home to Al-Azhar University",
	},
	"map_istanbul": {
		ID: "Istanbul (Konstantinopel): Ibu kota Kekaisaran Utsmaniyah",
		AR: "إسطنبول (القسطنطينية): عاصمة الإمبراطورية العثمانية",
		EN: "Istanbul (Constantinople): Capital of the Ottoman Empire",
	},
	"adminSaved": {
		ID: "Tersimpan!",
		AR: "تم الحفظ!",
		EN: "Saved!",
	},
	"adminNoUsersToExport": {
		ID: "Tidak ada pengguna yang cocok dengan filter untuk diekspor.",
		AR: "لا يوجد مستخدمون يطابقون الفلتر للتصدير.",
		EN: "No users matching filter to export.",
	},
	"saveFailed": {
		ID: "Gagal menyimpan perubahan. Silakan coba lagi.",
		AR: "فشل حفظ التغييرات. يرجى المحاولة مرة أخرى.",
		EN: "Failed to save changes. Please try again.",
	},
	"adminConfirmDelete": {
		ID: "Apakah Anda yakin ingin menghapus '{name}'?",
		AR: "هل أنت متأكد أنك تريد حذف '{name}'؟",
		EN: "Are you sure you want to delete '{name}'?",
	},
	"adminConfirmDeleteCategory": {
		ID: "Apakah Anda yakin ingin menghapus kategori '{name}' dan semua item di dalamnya?",
		AR: "هل أنت متأكد أنك تريد حذف الفئة '{name}' وجميع العناصر الموجودة بداخلها؟",
		EN: "Are you sure you want to delete the category '{name}' and all its items?",
	},
	"adminConfirmDeleteItem": {
		ID: "Apakah Anda yakin ingin menghapus item '{name}'?",
		AR: "هل أنت متأكد أنك تريد حذف العنصر '{name}'؟",
		EN: "Are you sure you want to delete the item '{name}'?",
	},
	"adminConfirmDeleteUser": {
		ID: "Apakah Anda yakin ingin menghapus pengguna '{name}'? Semua riwayat mereka juga akan dihapus.",
		AR: "هل أنت متأكد أنك تريد حذف المستخدم '{name}'؟ سيتم حذف كل سجلاتهم أيضًا.",
		EN: "Are you sure you want to delete the user '{name}'? All of their history will be deleted as well.",
	},
	"adminConfirmDeleteLog": {
		ID: "Apakah Anda yakin ingin menghapus entri riwayat ini?",
		AR: "هل أنت متأكد أنك تريد حذف هذا السجل؟",
		EN: "Are you sure you want to delete this history entry?",
	},
	"adminConfirmReset": {
		ID: "Apakah Anda yakin ingin mengembalikan ke default? Perubahan yang belum disimpan akan hilang.",
		AR: "هل أنت متأكد أنك تريد العودة إلى الوضع الافتراضي؟ ستفقد التغييرات غير المحفوظة.",
		EN: "Are you sure you want to revert to default? Your unsaved changes will be lost.",
	},
}
