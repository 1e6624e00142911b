package suggest

// rule maps one widget identifier to the questions it contributes
type rule struct {
	widgetID  string
	questions []string
}

// pairRule contributes questions when both widgets are attached together
type pairRule struct {
	first, second string
	questions     []string
}

// Table order is ranking order.
var widgetRules = []rule{
	{
		widgetID: "gold-price",
		questions: []string{
			"ราคาทองวันนี้เท่าไร?",
			"ราคาทองแท่งกับทองรูปพรรณต่างกันเท่าไร?",
			"แนวโน้มราคาทองช่วงนี้เป็นอย่างไร?",
			"ควรปรับราคารับจำนำทองตามราคาตลาดอย่างไร?",
		},
	},
	{
		widgetID: "transaction-summary",
		questions: []string{
			"สรุปยอดธุรกรรมให้หน่อย",
			"ธุรกรรมประเภทไหนมีมูลค่าสูงสุด?",
			"ยอดไถ่ถอนเทียบกับยอดรับจำนำเป็นอย่างไร?",
		},
	},
	{
		widgetID: "weekly-operations",
		questions: []string{
			"สรุปผลการดำเนินงานสัปดาห์นี้",
			"วันไหนในสัปดาห์มีธุรกรรมมากที่สุด?",
			"ผลการดำเนินงานสัปดาห์นี้ดีขึ้นหรือแย่ลง?",
		},
	},
	{
		widgetID: "daily-operations",
		questions: []string{
			"สรุปผลการดำเนินงานวันนี้",
			"ช่วงเวลาไหนของวันที่มีลูกค้ามากที่สุด?",
			"วันนี้มีรายการที่ต้องติดตามหรือไม่?",
		},
	},
	{
		widgetID: "trend-chart",
		questions: []string{
			"แนวโน้มธุรกรรมเป็นอย่างไร?",
			"มีความผิดปกติในกราฟแนวโน้มหรือไม่?",
			"คาดการณ์แนวโน้มเดือนหน้าได้อย่างไร?",
		},
	},
	{
		widgetID: "asset-types",
		questions: []string{
			"ประเภททรัพย์สินไหนถูกนำมาจำนำมากที่สุด?",
			"ควรปรับอัตราดอกเบี้ยของทรัพย์สินประเภทใด?",
		},
	},
	{
		widgetID: "overdue-contracts",
		questions: []string{
			"มีสัญญาที่เกินกำหนดกี่รายการ?",
			"ควรจัดการสัญญาที่เกินกำหนดอย่างไร?",
		},
	},
	{
		widgetID: "branch-performance",
		questions: []string{
			"สาขาไหนมีผลการดำเนินงานดีที่สุด?",
			"สาขาไหนควรได้รับการปรับปรุง?",
		},
	},
}

var pairRules = []pairRule{
	{
		first:  "weekly-operations",
		second: "daily-operations",
		questions: []string{
			"เปรียบเทียบผลการดำเนินงานวันนี้กับค่าเฉลี่ยรายสัปดาห์",
			"วันนี้ทำได้ดีกว่าหรือแย่กว่าสัปดาห์ที่ผ่านมา?",
		},
	},
	{
		first:  "gold-price",
		second: "transaction-summary",
		questions: []string{
			"ราคาทองส่งผลต่อยอดธุรกรรมอย่างไร?",
		},
	},
	{
		first:  "gold-price",
		second: "trend-chart",
		questions: []string{
			"แนวโน้มราคาทองสัมพันธ์กับแนวโน้มธุรกรรมหรือไม่?",
		},
	},
}

var overviewQuestions = []string{
	"สรุปภาพรวมจากข้อมูลทั้งหมดที่แนบมา",
	"ข้อมูลเหล่านี้มีความสัมพันธ์กันอย่างไร?",
	"มีข้อสังเกตหรือ insight สำคัญอะไรบ้าง?",
}

var generalQuestions = []string{
	"ระบบนี้ช่วยอะไรได้บ้าง?",
	"วิธีคำนวณดอกเบี้ยรับจำนำทำอย่างไร?",
	"ขั้นตอนการไถ่ถอนทรัพย์สินมีอะไรบ้าง?",
	"ควรตั้งราคารับจำนำทองอย่างไร?",
	"แนบข้อมูลจากแดชบอร์ดเพื่อถามคำถามได้อย่างไร?",
}
