package parser

import "testing"

func TestExtractReceiver(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected string
		ok       bool
	}{
		{
			name:     "thai transfer phrase on next line",
			text:     "โอนเงินสำเร็จ\nไปยัง\nนาย ข ผู้รับ\nxxx-x-x5678-x",
			expected: "นาย ข ผู้รับ",
			ok:       true,
		},
		{
			name:     "phrase stops at account word",
			text:     "ไปยัง ร้านกาแฟดี บัญชี xxx-x-x5678-x",
			expected: "ร้านกาแฟดี",
			ok:       true,
		},
		{
			name:     "masked account on the phrase line",
			text:     "To Somchai Jaidee xxx-x-x1234-x\nAmount 100.00",
			expected: "Somchai Jaidee",
			ok:       true,
		},
		{
			name:     "thai phrase followed by masked account",
			text:     "ไปยัง นาย ข ผู้รับ xxx-x-x5678-x",
			expected: "นาย ข ผู้รับ",
			ok:       true,
		},
		{
			name:     "english transfer to",
			text:     "Transfer to JOHN SMITH\nAmount 100.00",
			expected: "JOHN SMITH",
			ok:       true,
		},
		{
			name:     "paid by",
			text:     "รับเงินโดย ร้านป้าแดง 1234",
			expected: "ร้านป้าแดง",
			ok:       true,
		},
		{
			name:     "nothing recognizable",
			text:     "12345\n67890",
			ok:       false,
		},
		{
			name: "too short",
			text: "ไปยัง กข",
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractReceiver(tt.text)
			if ok != tt.ok {
				t.Fatalf("ok: got %v, want %v (name %q)", ok, tt.ok, got)
			}
			if got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestReceiverFromAccounts(t *testing.T) {
	text := "ธนาคารกสิกรไทย\nนาย ก ผู้โอน\nxxx-x-x1234-x\nโอนเงิน\nบริษัท ตัวอย่าง จำกัด\nxxx-x-x5678-x"

	got, ok := receiverFromAccounts(text)
	if !ok || got != "บริษัท ตัวอย่าง จำกัด" {
		t.Errorf("got %q, %v, want %q", got, ok, "บริษัท ตัวอย่าง จำกัด")
	}

	if _, ok := receiverFromAccounts("นาย ก\nxxx-x-x1234-x"); ok {
		t.Error("a single account number should not match")
	}
}

func TestReceiverAboveAccount(t *testing.T) {
	header := "ธนาคารกรุงเทพ รายการโอนเงินสำเร็จ วันที่ทำรายการ 05/12/2566 เวลา 10:32\n"
	got, ok := receiverAboveAccount(header + "Somsri Jaidee\n123-4-56789-0")
	if !ok || got != "Somsri Jaidee" {
		t.Errorf("got %q, %v, want %q", got, ok, "Somsri Jaidee")
	}

	if _, ok := receiverAboveAccount("Somsri Jaidee\n123-4-56789-0"); ok {
		t.Error("names inside the header area should be ignored")
	}
}

func TestReceiverFromBiller(t *testing.T) {
	got, ok := receiverFromBiller("ไปยัง การไฟฟ้านครหลวง Biller ID 099400016550")
	if !ok || got != "การไฟฟ้านครหลวง" {
		t.Errorf("got %q, %v, want %q", got, ok, "การไฟฟ้านครหลวง")
	}
}
